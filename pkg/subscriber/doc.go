// Package subscriber provides polling subscribers for event and telemetry
// topics.
//
// A Subscriber polls its topic on a fixed interval and keeps only the
// most recent sample. Current returns the latest sample without blocking;
// WaitNext blocks until a sample newer than the call arrives. There is no
// history: consumers that need every sample must drain the transport
// themselves.
//
//	sub, err := subscriber.New(topics, bus.TopicKey{
//	    Subsystem: "Scheduler",
//	    Kind:      bus.KindEvent,
//	    Name:      "summaryState",
//	})
//	if err != nil {
//	    return err
//	}
//	sub.Start()
//	defer sub.Stop()
//
//	p, err := sub.WaitNext(ctx, 5*time.Second)
package subscriber
