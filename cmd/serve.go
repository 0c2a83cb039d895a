/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sabouaram/xinetd-go/supervisor"
)

// serveFlags mirrors the subset of supervisor.Options a human operator
// is expected to set at process start.
type serveFlags struct {
	Config  string
	Async   bool
	Level   logLevelValue
	Toomany int
}

// logLevelValue is a pflag.Value so an unrecognized --log-level name is
// rejected at flag-parse time instead of surfacing later from
// supervisor.New.
type logLevelValue string

func (v *logLevelValue) String() string { return string(*v) }

func (v *logLevelValue) Set(s string) error {
	if _, err := logrus.ParseLevel(s); err != nil {
		return err
	}
	*v = logLevelValue(s)
	return nil
}

func (v *logLevelValue) Type() string { return "level" }

var _ pflag.Value = (*logLevelValue)(nil)

func newServeCommand(v *viper.Viper) *cobra.Command {
	flags := &serveFlags{Level: "info"}

	c := &cobra.Command{
		Use:   "serve",
		Short: "Load a configuration file and start accepting connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := optionsFromViper(v)
			if err != nil {
				return err
			}
			return runServe(cmd, opts, v.GetString("config"))
		},
	}

	c.Flags().StringVarP(&flags.Config, "config", "c", "/etc/xinetd.conf", "path to the service configuration file")
	c.Flags().BoolVar(&flags.Async, "async", false, "use the bounded-worker-pool acceptor instead of the synchronous one")
	c.Flags().Var(&flags.Level, "log-level", "logrus level name")
	c.Flags().IntVar(&flags.Toomany, "toomany", 0, "starts-window threshold before a looping service is disabled (0 disables the guard)")

	_ = v.BindPFlags(c.Flags())
	return c
}

func optionsFromViper(v *viper.Viper) (supervisor.Options, error) {
	if v.GetString("config") == "" {
		return supervisor.Options{}, ErrMissingConfig.Error(nil)
	}
	return supervisor.Options{
		Async:    v.GetBool("async"),
		Toomany:  v.GetInt("toomany"),
		LogLevel: v.GetString("log-level"),
	}, nil
}

func runServe(cmd *cobra.Command, opts supervisor.Options, confPath string) error {
	sup, err := supervisor.New(opts)
	if err != nil {
		return err
	}
	if err := sup.Start(confPath); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	<-ctx.Done()
	return sup.Shutdown()
}
