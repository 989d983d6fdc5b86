// Package fs abstracts the file operations of the local blob store so tests
// can inject write, sync, close and rename failures.
//
// Production code uses [Default]; tests wrap it in a [FaultyFS]:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".rbm", fs.Fault{FailAfterBytes: 0})
package fs
