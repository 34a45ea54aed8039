package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/pior/beanstalk"
)

func newPutCommand(ctx *commandContext) *cobra.Command {
	params := beanstalk.DefaultPutParams()
	var priority uint32

	cmd := &cobra.Command{
		Use:   "put <body|->",
		Short: "Insert a job, reading the body from stdin when it is -",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := []byte(args[0])
			if args[0] == "-" {
				var err error
				body, err = io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read body: %w", err)
				}
			}
			params.Priority = priority

			return ctx.withConn(cmd, func(conn *beanstalk.Conn) error {
				id, err := put(cmd, conn, body, params)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "inserted job %d\n", id)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&params.Tube, "tube", "t", "", "Tube to put into")
	cmd.Flags().Uint32VarP(&priority, "pri", "p", beanstalk.DefaultPriority, "Priority, lower is more urgent")
	cmd.Flags().DurationVar(&params.Delay, "delay", 0, "Delay before the job is ready")
	cmd.Flags().DurationVar(&params.TTR, "ttr", beanstalk.DefaultTTR, "Time to run")
	return cmd
}

func put(cmd *cobra.Command, p beanstalk.Producer, body []byte, params beanstalk.PutParams) (uint64, error) {
	return p.Put(cmd.Context(), body, params)
}

func newReserveCommand(ctx *commandContext) *cobra.Command {
	var (
		tube    string
		timeout time.Duration
		del     bool
	)

	cmd := &cobra.Command{
		Use:   "reserve",
		Short: "Reserve a job and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withConn(cmd, func(conn *beanstalk.Conn) error {
				if tube != "" {
					if _, err := conn.Watch(cmd.Context(), tube); err != nil {
						return err
					}
				}

				job, err := reserve(cmd, conn, timeout)
				if err != nil {
					return err
				}
				if job == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "no job")
					return nil
				}

				printJob(cmd, job)
				if del {
					return job.Delete(cmd.Context())
				}
				return job.Release(cmd.Context(), 0)
			})
		},
	}

	cmd.Flags().StringVarP(&tube, "tube", "t", "", "Tube to watch in addition to default")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Server-side reserve timeout")
	cmd.Flags().BoolVar(&del, "delete", false, "Delete the job instead of releasing it")
	return cmd
}

func reserve(cmd *cobra.Command, c beanstalk.Consumer, timeout time.Duration) (*beanstalk.Job, error) {
	return c.ReserveWithTimeout(cmd.Context(), timeout)
}

func newPeekCommand(ctx *commandContext) *cobra.Command {
	var (
		tube  string
		state string
	)

	cmd := &cobra.Command{
		Use:   "peek [id]",
		Short: "Show a job by id, or the next ready, delayed or buried job",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withConn(cmd, func(conn *beanstalk.Conn) error {
				if tube != "" {
					if err := conn.Use(cmd.Context(), tube); err != nil {
						return err
					}
				}

				var (
					job *beanstalk.Job
					err error
				)
				switch {
				case len(args) == 1:
					id, parseErr := parseJobID(args[0])
					if parseErr != nil {
						return parseErr
					}
					job, err = conn.Peek(cmd.Context(), id)
				case state == "ready":
					job, err = conn.PeekReady(cmd.Context())
				case state == "delayed":
					job, err = conn.PeekDelayed(cmd.Context())
				case state == "buried":
					job, err = conn.PeekBuried(cmd.Context())
				default:
					return fmt.Errorf("unknown state %q, want ready, delayed or buried", state)
				}
				if err != nil {
					return err
				}

				if job == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "no job")
					return nil
				}
				printJob(cmd, job)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&tube, "tube", "t", "", "Tube to peek into")
	cmd.Flags().StringVar(&state, "state", "ready", "Job state: ready, delayed or buried")
	return cmd
}

func newKickCommand(ctx *commandContext) *cobra.Command {
	var tube string

	cmd := &cobra.Command{
		Use:   "kick [bound]",
		Short: "Kick buried or delayed jobs back to ready",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bound := 1
			if len(args) == 1 {
				var err error
				bound, err = strconv.Atoi(args[0])
				if err != nil || bound < 1 {
					return fmt.Errorf("invalid bound %q", args[0])
				}
			}

			return ctx.withConn(cmd, func(conn *beanstalk.Conn) error {
				if tube != "" {
					if err := conn.Use(cmd.Context(), tube); err != nil {
						return err
					}
				}

				n, err := conn.Kick(cmd.Context(), bound)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "kicked %d jobs\n", n)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&tube, "tube", "t", "", "Tube to kick jobs in")
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}

			return ctx.withConn(cmd, func(conn *beanstalk.Conn) error {
				if err := conn.Delete(cmd.Context(), id); err != nil {
					if errors.Is(err, beanstalk.ErrNotFound) {
						return fmt.Errorf("job %d not found", id)
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted job %d\n", id)
				return nil
			})
		},
	}
}

func newBuryCommand(ctx *commandContext) *cobra.Command {
	var (
		tube     string
		timeout  time.Duration
		priority uint32
	)

	cmd := &cobra.Command{
		Use:   "bury",
		Short: "Reserve the next job and bury it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withConn(cmd, func(conn *beanstalk.Conn) error {
				if tube != "" {
					if _, err := conn.Watch(cmd.Context(), tube); err != nil {
						return err
					}
				}

				job, err := reserve(cmd, conn, timeout)
				if err != nil {
					return err
				}
				if job == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "no job")
					return nil
				}

				if cmd.Flags().Changed("pri") {
					err = job.BuryWithPriority(cmd.Context(), priority)
				} else {
					err = job.Bury(cmd.Context())
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "buried job %d\n", job.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&tube, "tube", "t", "", "Tube to watch in addition to default")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Server-side reserve timeout")
	cmd.Flags().Uint32VarP(&priority, "pri", "p", beanstalk.DefaultPriority, "New priority, the current one when unset")
	return cmd
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var (
		tube  string
		jobID uint64
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show server, tube or job statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withConn(cmd, func(conn *beanstalk.Conn) error {
				var (
					stats beanstalk.Stats
					err   error
				)
				switch {
				case tube != "":
					stats, err = conn.StatsTube(cmd.Context(), tube)
				case cmd.Flags().Changed("job"):
					stats, err = conn.StatsJob(cmd.Context(), jobID)
				default:
					stats, err = conn.Stats(cmd.Context())
				}
				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), renderStats(stats))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&tube, "tube", "t", "", "Show the stats of a tube")
	cmd.Flags().Uint64Var(&jobID, "job", 0, "Show the stats of a job")
	return cmd
}

func newTubesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tubes",
		Short: "List tubes with their job counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withConn(cmd, func(conn *beanstalk.Conn) error {
				tubes, err := conn.Tubes(cmd.Context())
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(tubes))
				for _, name := range tubes {
					stats, err := conn.StatsTube(cmd.Context(), name)
					if errors.Is(err, beanstalk.ErrNotFound) {
						// deleted since listed
						continue
					}
					if err != nil {
						return err
					}
					rows = append(rows, tubeRow(name, stats))
				}

				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Tube", "Ready", "Reserved", "Delayed", "Buried"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
}

func tubeRow(name string, stats beanstalk.Stats) []string {
	row := []string{name}
	for _, key := range []string{"current-jobs-ready", "current-jobs-reserved", "current-jobs-delayed", "current-jobs-buried"} {
		n, _ := stats.GetInt(key)
		row = append(row, strconv.FormatInt(n, 10))
	}
	return row
}

func printJob(cmd *cobra.Command, job *beanstalk.Job) {
	fmt.Fprintf(cmd.OutOrStdout(), "job %d (%d bytes)\n%s\n", job.ID, len(job.Body), job.Body)
}

func parseJobID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid job id %q", s)
	}
	return id, nil
}
