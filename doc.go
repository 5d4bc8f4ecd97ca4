// Package termkit runs shell commands on a local or remote (SSH) terminal
// session, records every command in an append-only history and sequences
// all terminal operations through a ticket queue.
//
// Commands run inline on the caller goroutine or on worker goroutines, yet
// always complete in submission order:
//
//	srv, _ := termkit.New(termkit.WithConfig(cfg), termkit.WithSink(func(d *output.Data) {
//		fmt.Println(d.Line)
//	}))
//	_ = srv.Connect(ctx)
//	record, _ := srv.RunTerminalCommand(ctx, "uname -a")
//	_ = srv.Close(ctx)
//
// Sub packages hold the building blocks: service/queue (ticket queue),
// service/terminal (session), service/shell (transports), service/history
// (command records) and service/output (output filtering).
package termkit
