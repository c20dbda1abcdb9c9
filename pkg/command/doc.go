// Package command implements both halves of the command round-trip on the
// control bus: issuing commands and tracking their acknowledgments, and
// receiving commands and executing them against a lifecycle context.
//
// # Issuing
//
// Sender issues commands on registered command topics and records every
// acknowledgment in a CorrelationRegistry, keyed by the correlation id the
// transport assigned at issue time. A background goroutine polls the
// transport for acknowledgments; callers block on WaitForCompletion or
// WaitForInProgress.
//
//	sender := command.NewSender("Scheduler", topics)
//	sender.Start()
//	defer sender.Stop()
//
//	id, _, err := sender.Send(ctx, "start", nil)
//	if err != nil {
//	    return err
//	}
//	_, result, err := sender.WaitForCompletion(ctx, id, 5*time.Second)
//
// # Receiving
//
// Controller owns one command topic. It polls for inbound commands,
// acknowledges receipt immediately, rejects overlapping commands with
// NOPERM, and runs accepted commands through lifecycle.Context.Execute in
// a separate goroutine, reporting the outcome as the terminal
// acknowledgment.
//
//	ctrl, err := command.NewController(lctx, topics, "start")
//	if err != nil {
//	    return err
//	}
//	ctrl.Start()
//	defer ctrl.Stop()
package command
