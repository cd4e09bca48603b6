// Package transfer implements the flux peer-to-peer file transfer engine.
//
// A short numeric rendezvous code, shared out-of-band, brings a sender and a
// receiver together over TCP. The sender streams a compressed,
// authenticated-encrypted copy of one file; the receiver reconstructs it and
// promotes it atomically into the destination directory.
//
// # Engine
//
// Engine is the entry point. Send and Receive submit background pipelines and
// return immediately; all outcomes are observed through the event stream:
//
//	engine := transfer.NewEngine(transfer.DefaultConfig())
//	defer engine.Close()
//
//	id, err := engine.Send("/path/archive.bin", "p@ss", func(e transfer.Event) {
//	    switch e.Type {
//	    case transfer.EventCodeIssued:
//	        fmt.Println("share this code:", e.Code)
//	    case transfer.EventProgress:
//	        fmt.Printf("\r%3d%%", e.Percent)
//	    }
//	})
//
// The receiving side attaches with the code:
//
//	handle, err := engine.Receive("/downloads", "p@ss", code, onEvent)
//	// handle.Close() cancels the receive.
//
// Event callbacks run on the pipeline goroutine and must return quickly.
//
// # Pipelines
//
// The sender moves through PREPARING, WAITING_FOR_PEER, CONNECTING and
// SENDING; the receiver through BINDING, ACCEPTING, RECEIVING and
// FINALIZING. Every terminal path, including failure and cancellation,
// removes the pipeline's temporary files and releases its rendezvous code.
//
// # Errors
//
// Pipeline failures are classified against the sentinel errors ErrInput,
// ErrRendezvous, ErrNetwork, ErrCrypto, ErrCompression and ErrCancelled,
// recorded in the transfer ledger, and emitted as EventFailed. They never
// reach the caller's goroutine.
package transfer
