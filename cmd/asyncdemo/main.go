// Command asyncdemo exercises each synchronization primitive in this module
// from the command line, as a smoke test and as runnable documentation of
// how the primitives are meant to be used.
package main

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"sync"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/vanadium-labs/asynclock/cancel"
	"github.com/vanadium-labs/asynclock/cmdline2"
	"github.com/vanadium-labs/asynclock/config"
	"github.com/vanadium-labs/asynclock/counter"
	"github.com/vanadium-labs/asynclock/keyedlock"
	"github.com/vanadium-labs/asynclock/lineprefix"
	"github.com/vanadium-labs/asynclock/obslog"
	"github.com/vanadium-labs/asynclock/rwlock"
	"github.com/vanadium-labs/asynclock/semaphore"
	"github.com/vanadium-labs/asynclock/switchlock"
	"github.com/vanadium-labs/asynclock/taskstream"
)

// syncWriter serializes concurrent writers onto w, since io.Writer makes no
// concurrency guarantee of its own and these demos write from several
// goroutines at once.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// prefixed wraps fn so every line it writes to env.Stdout is tagged with
// the demo's name, so output from several demos run back to back (e.g. via
// "help ...") stays attributable. env.Stderr is passed through untagged.
func prefixed(name string, fn cmdline2.RunnerFunc) cmdline2.RunnerFunc {
	return func(env *cmdline2.Env, args []string) error {
		out := lineprefix.New(env.Stdout, "["+name+"] ")
		defer out.Close()
		sub := *env
		sub.Stdout = out
		return fn(&sub, args)
	}
}

func main() {
	cmdline2.Main(root)
}

var root = &cmdline2.Command{
	Name:  "asyncdemo",
	Short: "Exercise this module's synchronization primitives",
	Long: `
Command asyncdemo runs small, self-contained demonstrations of each
asynchronous synchronization primitive this module provides.
`,
	Children: []*cmdline2.Command{
		semaphoreCmd,
		counterCmd,
		rwlockCmd,
		switchlockCmd,
		keyedlockCmd,
		taskflagCmd,
		configCmd,
	},
}

// bridgePflags copies every flag registered on src onto dst, so a
// cmdline2.Command (which parses a stdlib flag.FlagSet) can be configured
// with pflag flags. A pflag.Value satisfies flag.Value (String/Set), so
// no conversion is needed beyond re-registering the same Value.
func bridgePflags(dst *cmdline2.Command, src *pflag.FlagSet) {
	src.VisitAll(func(f *pflag.Flag) {
		dst.Flags.Var(f.Value, f.Name, f.Usage)
	})
}

func newVerbosity() (*pflag.FlagSet, *int) {
	fs := pflag.NewFlagSet("obs", pflag.ContinueOnError)
	v := fs.IntP("verbosity", "v", 0, "log verbosity for this demo run")
	return fs, v
}

var semaphoreCmd = func() *cmdline2.Command {
	fs, verbosity := newVerbosity()
	maxCount := fs.Int64("max", 2, "maximum number of concurrently held units")
	cmd := &cmdline2.Command{
		Name:  "semaphore",
		Short: "Demonstrate AsyncSemaphore",
		Long:  "Takes more units than the configured maximum, showing later takers suspend until earlier ones release.",
		Runner: cmdline2.RunnerFunc(func(env *cmdline2.Env, args []string) error {
			log := obslog.New("asyncdemo.semaphore")
			log.SetVerbosity(obslog.Level(*verbosity))
			sem, err := semaphore.New(*maxCount, semaphore.WithLogger(log))
			if err != nil {
				return err
			}
			out := &syncWriter{w: env.Stdout}
			var g errgroup.Group
			for i := int64(0); i < *maxCount+1; i++ {
				i := i
				g.Go(func() error {
					guard, err := sem.Take(cancel.None()).Wait(context.Background())
					if err != nil {
						return fmt.Errorf("taker %d: %w", i, err)
					}
					fmt.Fprintf(out, "taker %d: holding\n", i)
					time.Sleep(10 * time.Millisecond)
					guard.Release()
					fmt.Fprintf(out, "taker %d: released\n", i)
					return nil
				})
			}
			return g.Wait()
		}),
	}
	bridgePflags(cmd, fs)
	return cmd
}()

var counterCmd = func() *cmdline2.Command {
	fs, _ := newVerbosity()
	initial := fs.Int64("initial", 0, "initial counter value")
	cmd := &cmdline2.Command{
		Name:  "counter",
		Short: "Demonstrate AsyncCounter.Decrement and Increment",
		Long:  "Starts a Decrement before any units are available, then Increments to release it.",
		Runner: cmdline2.RunnerFunc(func(env *cmdline2.Env, args []string) error {
			c, err := counter.New(*initial)
			if err != nil {
				return err
			}
			done := make(chan struct{})
			go func() {
				defer close(done)
				if _, err := c.Decrement(cancel.None()).Wait(context.Background()); err != nil {
					fmt.Fprintf(env.Stderr, "Decrement: %v\n", err)
					return
				}
				fmt.Fprintln(env.Stdout, "Decrement resolved")
			}()
			time.Sleep(10 * time.Millisecond)
			if err := c.Increment(); err != nil {
				return err
			}
			<-done
			return nil
		}),
	}
	bridgePflags(cmd, fs)
	return cmd
}()

var rwlockCmd = &cmdline2.Command{
	Name:  "rwlock",
	Short: "Demonstrate AsyncReadWriteLock",
	Long:  "Holds two concurrent readers, then shows a writer suspend until both release.",
	Runner: prefixed("rwlock", func(env *cmdline2.Env, args []string) error {
		l := rwlock.New()
		r1, err := l.LockRead(cancel.None(), rwlock.Unfair).Wait(context.Background())
		if err != nil {
			return err
		}
		r2, err := l.LockRead(cancel.None(), rwlock.Unfair).Wait(context.Background())
		if err != nil {
			return err
		}
		fmt.Fprintln(env.Stdout, "two readers held concurrently")
		wfut := l.LockWrite(cancel.None(), rwlock.Unfair)
		select {
		case <-wfut.Done():
			return fmt.Errorf("writer acquired while readers were held")
		default:
		}
		r1.Release()
		r2.Release()
		w, err := wfut.Wait(context.Background())
		if err != nil {
			return err
		}
		fmt.Fprintln(env.Stdout, "writer acquired after both readers released")
		w.Release()
		return nil
	}),
}

var switchlockCmd = &cmdline2.Command{
	Name:  "switchlock",
	Short: "Demonstrate AsyncSwitchLock",
	Long:  "Holds the left side, shows a right-side Enter suspend until the left side drains.",
	Runner: prefixed("switchlock", func(env *cmdline2.Env, args []string) error {
		l := switchlock.New()
		left, err := l.Enter(switchlock.Left, cancel.None(), switchlock.Unfair).Wait(context.Background())
		if err != nil {
			return err
		}
		rfut := l.Enter(switchlock.Right, cancel.None(), switchlock.Unfair)
		select {
		case <-rfut.Done():
			return fmt.Errorf("right side entered while left was active")
		default:
		}
		left.Release()
		right, err := rfut.Wait(context.Background())
		if err != nil {
			return err
		}
		fmt.Fprintln(env.Stdout, "switched from left to right after the left side drained")
		right.Release()
		return nil
	}),
}

var keyedlockCmd = &cmdline2.Command{
	Name:     "keyedlock",
	Short:    "Demonstrate AsyncKeyedLock",
	Long:     "Locks two distinct keys concurrently, then shows a second locker on the same key suspend.",
	ArgsName: "key",
	ArgsLong: "key identifies the lock to demonstrate contention on; defaults to \"demo\".",
	Runner: prefixed("keyedlock", func(env *cmdline2.Env, args []string) error {
		key := "demo"
		if len(args) > 0 {
			key = args[0]
		}
		l := keyedlock.New()
		g1, err := l.Lock(key, cancel.None()).Wait(context.Background())
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Stdout, "holding key %q\n", key)
		fmt.Fprintf(env.Stdout, "active keys: %v\n", l.ActiveKeys())
		fut := l.Lock(key, cancel.None())
		select {
		case <-fut.Done():
			return fmt.Errorf("second Lock on %q succeeded while the first was held", key)
		default:
		}
		g1.Release()
		g2, err := fut.Wait(context.Background())
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Stdout, "second locker acquired key %q after release\n", key)
		g2.Release()
		return nil
	}),
}

var taskflagCmd = &cmdline2.Command{
	Name:  "taskflag",
	Short: "Demonstrate AsyncTaskFlag coalescing",
	Long:  "Fires several Set calls while a run is in progress, showing they coalesce into a single rerun.",
	Runner: prefixed("taskflag", func(env *cmdline2.Env, args []string) error {
		var runs int
		var mu sync.Mutex
		release := make(chan struct{})
		started := make(chan struct{}, 8)
		f := taskstream.New(func(context.Context) {
			mu.Lock()
			runs++
			mu.Unlock()
			started <- struct{}{}
			<-release
		})
		f.Set()
		<-started
		f.Set()
		f.Set()
		f.Set()
		close(release)
		<-started
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		fmt.Fprintf(env.Stdout, "ran %d times despite 4 Set calls\n", runs)
		mu.Unlock()
		return nil
	}),
}

var configCmd = &cmdline2.Command{
	Name:     "config",
	Short:    "Print the resolved runtime configuration",
	Long:     "Loads defaults, then merges in the given YAML document (if any), and prints the resolved dispatch pool size, spin budget, and default timeout.",
	ArgsName: "[path]",
	ArgsLong: "path, if given, names a YAML file merged onto the built-in defaults.",
	Runner: prefixed("config", func(env *cmdline2.Env, args []string) error {
		var doc string
		if len(args) > 0 {
			b, err := ioutil.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc = string(b)
		}
		rt, err := config.Load(doc)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Stdout, "dispatchPoolSize=%d spinBudget=%d defaultTimeout=%s\n",
			rt.DispatchPoolSize, rt.SpinBudget, rt.DefaultTimeout)
		return nil
	}),
}
