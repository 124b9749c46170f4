// This package provides chainable byte-stream I/O filters.

// Three filter families share one contract: Lambda runs in-process in a
// background goroutine, ChildProcess runs a command as a child process, and
// Tee copies one input to any number of output sinks.

// Copying data can largely be avoided by using pipes between processes.

// How to use:
//
// import (
// 	"os/exec"
//
// 	"github.com/andriiyaremenko/iofilters"
// )
//
// func main() {
// 	gzip := iofilters.NewChildProcess(exec.Command("gzip"))
// 	count := iofilters.NewTap(nil)
//
// 	zipped, err := gzip.Start(iofilters.ReadPipe(), iofilters.WritePipe())
// 	if err != nil {
// 		// ...
// 	}
//
// 	counted, err := count.Start(iofilters.ReadFile(zipped.OutputPipe()), iofilters.WriteNull())
// 	if err != nil {
// 		// ...
// 	}
//
// 	in := zipped.InputPipe()
// 	in.Write([]byte("payload"))
// 	in.Close()
//
// 	exit, err := zipped.Wait()
// 	// handle the chained error, or inspect exit directly
// 	_ = exit
// 	_ = err
//
// 	compressedBytes, _ := counted.Wait()
// 	_ = compressedBytes
// }
package iofilters
