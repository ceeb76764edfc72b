// Package scaleship provides an embeddable agent that polls an industrial
// scale terminal over TCP and forwards its readings.
//
// The agent sends the read command at a fixed interval, reads one
// fixed-length frame, decodes it into a [frame.Record] and hands it to an
// optional [Publisher]. Faults never stop the agent: I/O and framing faults
// drop the connection and the next cycle dials a fresh one.
//
// # Basic Usage
//
//	cfg := scaleship.DefaultConfig()
//	cfg.Host = "10.0.0.5"
//
//	agent, err := scaleship.New(cfg, scaleship.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := agent.Start(ctx); err != nil {
//	    return err
//	}
//	defer agent.Stop()
//
// # Publishing
//
// Pass a publisher from pkg/publish to forward readings to NATS or MQTT:
//
//	pub, err := publish.Open(ctx, "tcp://broker:1883", publish.Options{Logger: logger})
//	agent, err := scaleship.New(cfg, scaleship.WithPublisher(pub))
//
// # Event Handling
//
// Implement [EventHandler], embedding [BaseEventHandler] for the events you
// do not need, and pass it via [WithEventHandler]. Handlers run on the
// polling goroutine.
//
// # Lifecycle States
//
// An agent is in one of [StateStopped], [StateStarting], [StateRunning],
// [StateStopping] or [StateCrashed]. It crashes only when a connect retry
// ceiling is configured and exceeded; [Scaleship.Done] and [Scaleship.Err]
// report that.
package scaleship
