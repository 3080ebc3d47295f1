// Package filedb implements a small key/value database stored in a single
// flat text file.
//
// The whole file is read and parsed when the database is opened. All
// operations work on the in-memory map and the map is written back, in full,
// when the database is closed.
//
// # File Format
//
// Each record is stored as:
//
//	<key>|>!<|<value>|<!>|\n
//
// The file is a concatenation of records in no particular order, without
// a header or a record count. An empty file is an empty database.
//
// There is no escaping: a key or value that contains "|>!<|" or "|<!>|"
// corrupts the file the next time it is written. Use [ValidateText] to check
// user input before adding it.
//
// # Basic Usage
//
//	db, err := filedb.Open(path)
//	if err != nil {
//	    return err
//	}
//	// Close() can be called multiple times
//	defer db.Close()
//
//	err = db.Add("shell", "echo hi")
//	v, err := db.Get("shell")
//
//	// writes the file
//	return db.Close()
//
// # Concurrency
//
// A DB can be shared between goroutines. There is no locking across
// processes: if two processes open the same file, the last one to Close wins
// and changes made by the other are lost.
package filedb
