package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/spf13/cobra"
)

type queryOptions struct {
	server  string
	qtype   string
	tcp     bool
	timeout time.Duration
}

// newQueryCmd returns the "query" subcommand, a minimal client for checking
// a running server.
func newQueryCmd() *cobra.Command {
	opts := queryOptions{}
	cmd := &cobra.Command{
		Use:   "query NAME",
		Short: "Send one query to a DNS server and print the reply",
		Example: `  lbdnsd query example.com
  lbdnsd query --type NS --tcp --server 127.0.0.1:5053 example.com`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.server, "server", "s", "127.0.0.1:5053", "server address")
	cmd.Flags().StringVarP(&opts.qtype, "type", "t", "A", "query type")
	cmd.Flags().BoolVar(&opts.tcp, "tcp", false, "query over TCP instead of UDP")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "query timeout")
	return cmd
}

// runQuery sends one question and writes the reply in presentation format.
func runQuery(w io.Writer, name string, opts queryOptions) error {
	qtype, ok := dns.StringToType[strings.ToUpper(opts.qtype)]
	if !ok {
		return fmt.Errorf("unknown query type %q", opts.qtype)
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)

	client := &dns.Client{Net: "udp", Timeout: opts.timeout}
	if opts.tcp {
		client.Net = "tcp"
	}

	reply, rtt, err := client.Exchange(msg, opts.server)
	if err != nil {
		return fmt.Errorf("query %s %s via %s: %w", name, opts.qtype, opts.server, err)
	}

	fmt.Fprintln(w, reply.String())
	fmt.Fprintf(w, ";; Query time: %v\n;; SERVER: %s (%s)\n", rtt.Round(time.Microsecond), opts.server, client.Net)
	return nil
}
