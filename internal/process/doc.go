// Package process supervises a single long-running child process.
//
// Supervisor owns at most one child at a time and restarts it forever:
//   - every exit, clean or not, arms a one-shot timer for RestartPolicy.Delay
//   - the timer firing launches the next child from a fresh launch.Spec
//   - SIGINT/SIGTERM (or context cancellation) stops the timer, sends SIGINT
//     to a live child without waiting for it and returns from Run
//
// All state lives on the goroutine running Run. Child exits, timer ticks,
// signals and restart requests arrive as channel receives on that goroutine,
// so the child handle needs no lock.
//
// ExecLauncher starts real processes with os/exec. stdin and stdout are
// discarded; stderr is discarded, logged line by line, or written to a
// rotated file.
//
// Example:
//
//	sup := process.New(&process.Options{
//	    Provider: launch.NewSource(cfg),
//	    Launcher: process.NewExecLauncher(process.ExecOptions{Stderr: process.StderrDiscard}),
//	    Policy:   process.RestartPolicy{Delay: 5 * time.Second},
//	    Signals:  sigCh,
//	})
//	if err := sup.Run(ctx); err != nil {
//	    os.Exit(1)
//	}
package process
