/*
Package atomicfile writes files so that readers see either the old
content or the complete new content, never a partially written file.

Writing to files in a robust way requires:

- handling error returned by Write()

- handling error returned by Close()

- removing partially written file on errors

Data is written to a temporary file in the same directory which is
renamed over the destination in Close():

	func save(path string, d []byte) error {
		f, err := atomicfile.New(path)
		if err != nil {
			return err
		}
		// on early return the temp file is deleted
		defer f.RemoveIfNotClosed()

		if _, err = f.Write(d); err != nil {
			return err
		}
		return f.Close()
	}

For the common case use WriteFile().
*/
package atomicfile
