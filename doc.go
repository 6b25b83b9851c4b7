// Package studiolink is a client for studio recording and playback control
// systems: recorders, VTRs, the tape cache and asset management.
//
// It implements the two halves of the control-panel protocol:
//
//   - Status polling. Each [StatusChannel] is polled by its own poller with
//     at most one request in flight. The next request is scheduled only
//     after the previous result has been handled, and failures are retried
//     at the same cadence unless [WithBackoff] is set. Every poll yields a
//     [Snapshot] that fully replaces the previous one.
//   - Command serialization. Each [CommandChannel] has a gate that closes
//     while a command is in flight. Commands issued while the gate is
//     closed are dropped, so held keys and shuttle knobs cannot flood a
//     device.
//
// # Quick Start
//
//	vtr, _ := studiolink.PresetChannel("vtr",
//	    studiolink.WithInterval(500*time.Millisecond),
//	    studiolink.WithDisplay(
//	        studiolink.Field("Timecode", "timecode", studiolink.FormatTimecode),
//	        studiolink.Field("State", "state", studiolink.FormatText),
//	    ),
//	)
//	c, _ := studiolink.New(
//	    studiolink.WithBaseURL("http://studio:7000"),
//	    studiolink.WithStatusChannel(vtr),
//	    studiolink.WithStatusCallback(func(s studiolink.Snapshot) {
//	        if !s.Connected() {
//	            fmt.Println("disconnected:", s.Err)
//	            return
//	        }
//	        fmt.Println(s.Fields["Timecode"], s.Fields["State"])
//	    }),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	go c.Start(ctx)
//	c.VTR(ctx, "play")
//
// # Errors
//
// Nothing is fatal. Failures are classified, never raised:
//
//   - [ErrTransport]: network, DNS or timeout
//   - [StatusError]: non-200 HTTP status
//   - [ErrMalformed], [ErrMalformedEnvelope]: a body that could not be decoded
//   - [ApplicationError]: an err~ reply from asset management
//
// Status failures produce a disconnected snapshot and polling continues.
// Command failures re-open the gate and are otherwise swallowed, except on
// the asset channel, which reports all but transport failures to
// [WithMessageBox].
//
// # Architecture
//
// The console is assembled from internal packages:
//
//   - internal/poller: self-rescheduling single-flight status poller
//   - internal/command: gated one-shot command dispatcher
//   - internal/transport: pooled HTTP client and failure taxonomy
//   - internal/envelope: ok~/err~ reply parser
//   - internal/assets: asset-management calls with message-box reporting
//   - internal/studio: backend URL layout
//   - internal/store: last-known snapshots with change-only pub/sub
//   - internal/server: relay REST/SSE API
//   - internal/settings: IngexSettings cookie codec
//   - internal/render: prior-value cache for change detection
//
// The [format] package renders sizes, frame positions and timecodes.
package studiolink
