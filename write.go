// Write primitives for the append-only file.
//
// New sections are always appended at d.tail (the current end of file). A
// failed append is truncated away so the file and d.tail are exactly as
// they were before the call.
package revdoc

import (
	"os"
)

// append writes data at d.tail and advances the tail.
func (d *Document) append(data []byte) (int64, error) {
	offset := d.tail
	if _, err := d.file.WriteAt(data, offset); err != nil {
		d.truncate(offset)
		return 0, err
	}
	if d.config.SyncWrites {
		if err := d.file.Sync(); err != nil {
			d.truncate(offset)
			return 0, err
		}
	}
	d.tail += int64(len(data))
	return offset, nil
}

// truncate discards everything from offset on.
func (d *Document) truncate(offset int64) {
	if err := d.file.Truncate(offset); err != nil {
		d.log.Error("truncate after failed write", "offset", offset, "err", err)
	}
	d.tail = offset
}

// writeFile creates path, which must not exist, with data and syncs it.
func writeFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
