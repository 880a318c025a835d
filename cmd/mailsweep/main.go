// Command mailsweep is a command-line client for mailbox maintenance over
// IMAP: search and read mail, score and sweep junk, discover and execute
// unsubscribe methods, and manage filter rules.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mailsweep/mailsweep/browser"
	"github.com/mailsweep/mailsweep/config"
	"github.com/mailsweep/mailsweep/imapmail"
	"github.com/mailsweep/mailsweep/rules"
	"github.com/mailsweep/mailsweep/send"
	"github.com/mailsweep/mailsweep/sweep"
	"github.com/mailsweep/mailsweep/unsub"
)

var (
	configPath string
	mailbox    string
	verbose    bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mailsweep",
		Short:         "Mailbox maintenance over IMAP",
		Long:          "Search, triage, and clean a mailbox: junk scoring, bulk moves, unsubscribe discovery, and filter rules.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: environment only)")
	root.PersistentFlags().StringVarP(&mailbox, "mailbox", "m", sweep.InboxMailbox, "mailbox to operate on")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")

	root.AddCommand(
		newMailboxesCmd(),
		newSearchCmd(),
		newRecentCmd(),
		newMessageCmd(),
		newSendCmd(),
		newMoveCmd(),
		newMarkCmd(),
		newDeleteCmd(),
		newAnalyzeCmd(),
		newFilterJunkCmd(),
		newSendersCmd(),
		newUnsubCmd(),
		newRulesCmd(),
	)
	return root
}

func newClient() (*sweep.Client, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	opts := []sweep.Option{}
	if verbose {
		opts = append(opts, sweep.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))))
	}
	return sweep.New(cfg, opts...), nil
}

func newMailboxesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mailboxes",
		Short: "List mailboxes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			boxes, err := c.Mailboxes()
			if err != nil {
				return err
			}
			return printJSON(boxes)
		},
	}
}

func newSearchCmd() *cobra.Command {
	var (
		from, to, subject, text string
		unseen, noJunk          bool
		days, limit             int
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search messages, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			q := imapmail.SearchQuery{
				From:    from,
				To:      to,
				Subject: subject,
				Text:    text,
				Unseen:  unseen,
			}
			if days > 0 {
				q.Since = time.Now().AddDate(0, 0, -days)
			}
			var out []sweep.Summary
			if noJunk {
				out, err = c.SearchFiltered(q, mailbox, limit)
			} else {
				out, err = c.Search(q, mailbox, limit)
			}
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "match sender")
	cmd.Flags().StringVar(&to, "to", "", "match recipient")
	cmd.Flags().StringVar(&subject, "subject", "", "match subject")
	cmd.Flags().StringVar(&text, "text", "", "match anywhere in the message")
	cmd.Flags().BoolVar(&unseen, "unseen", false, "unread messages only")
	cmd.Flags().BoolVar(&noJunk, "no-junk", false, "drop likely junk from the results")
	cmd.Flags().IntVar(&days, "days", 0, "restrict to the last N days")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum results")
	return cmd
}

func newRecentCmd() *cobra.Command {
	var days, limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recent messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			out, err := c.Recent(mailbox, days, limit)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "window in days")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum results")
	return cmd
}

func newMessageCmd() *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "message <id>",
		Short: "Show one message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			var rec imapmail.MessageRecord
			if full {
				rec, err = c.MessageFull(args[0], mailbox)
			} else {
				rec, err = c.Message(args[0], mailbox)
			}
			if err != nil {
				return err
			}
			return printJSON(rec)
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "include HTML body, unsubscribe headers, and attachment info")
	return cmd
}

func newSendCmd() *cobra.Command {
	var (
		to, cc          []string
		subject, body   string
		inReplyTo, refs string
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a plain-text message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			msg := send.Message{
				To:        to,
				Cc:        cc,
				Subject:   subject,
				Body:      body,
				InReplyTo: inReplyTo,
			}
			if refs != "" {
				msg.References = strings.Fields(refs)
			}
			id, err := c.Send(msg)
			if err != nil {
				return err
			}
			return printJSON(map[string]string{"message_id": id})
		},
	}
	cmd.Flags().StringSliceVar(&to, "to", nil, "recipient (repeatable)")
	cmd.Flags().StringSliceVar(&cc, "cc", nil, "cc recipient (repeatable)")
	cmd.Flags().StringVar(&subject, "subject", "", "subject line")
	cmd.Flags().StringVar(&body, "body", "", "message body")
	cmd.Flags().StringVar(&inReplyTo, "in-reply-to", "", "Message-ID being replied to")
	cmd.Flags().StringVar(&refs, "references", "", "space-separated References header ids")
	cmd.MarkFlagRequired("to")
	cmd.MarkFlagRequired("body")
	return cmd
}

func newMoveCmd() *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "move <id>...",
		Short: "Move messages to another mailbox",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			result, err := c.BulkMove(args, mailbox, to)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "destination mailbox")
	cmd.MarkFlagRequired("to")
	return cmd
}

func newMarkCmd() *cobra.Command {
	var (
		flagName string
		remove   bool
	)
	cmd := &cobra.Command{
		Use:   "mark <id>...",
		Short: "Add or remove a flag on messages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flag, err := resolveFlag(flagName)
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			result, err := c.BulkMark(args, mailbox, flag, !remove)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringVar(&flagName, "flag", "seen", "flag to change: seen, flagged, deleted")
	cmd.Flags().BoolVar(&remove, "remove", false, "remove the flag instead of adding it")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	var permanent bool
	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete messages (to Trash unless --permanent)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			result, err := c.BulkDelete(args, mailbox, permanent)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().BoolVar(&permanent, "permanent", false, "expunge instead of moving to Trash")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <id>",
		Short: "Score one message for junk likelihood",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			analysis, err := c.AnalyzeJunk(args[0], mailbox)
			if err != nil {
				return err
			}
			return printJSON(analysis)
		},
	}
}

func newFilterJunkCmd() *cobra.Command {
	var (
		limit int
		move  bool
	)
	cmd := &cobra.Command{
		Use:   "filter-junk",
		Short: "Score recent messages and optionally move junk to Spam",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			action := sweep.FilterAnalyze
			if move {
				action = sweep.FilterMoveToSpam
			}
			report, err := c.FilterJunk(mailbox, limit, action)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "how many recent messages to score")
	cmd.Flags().BoolVar(&move, "move", false, "move detected junk to Spam")
	return cmd
}

func newSendersCmd() *cobra.Command {
	var days, minCount int
	cmd := &cobra.Command{
		Use:   "senders",
		Short: "Aggregate recent traffic by sender and flag likely mailing lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			stats, err := c.MailingListSenders(mailbox, days, minCount)
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "window in days")
	cmd.Flags().IntVar(&minCount, "min-count", 2, "hide senders seen fewer times")
	return cmd
}

func newUnsubCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unsub",
		Short: "Discover and execute unsubscribe methods",
	}
	cmd.AddCommand(newUnsubFindCmd(), newUnsubScanCmd(), newUnsubRunCmd(), newUnsubOpenCmd())
	return cmd
}

func newUnsubFindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find <id>",
		Short: "List the unsubscribe methods in one message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			report, err := c.FindUnsubscribe(args[0], mailbox)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
}

func newUnsubScanCmd() *cobra.Command {
	var days, limit int
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Sweep recent mail for unsubscribe opportunities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			report, err := c.ScanUnsubscribe(mailbox, days, limit)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "window in days")
	cmd.Flags().IntVar(&limit, "limit", 50, "how many recent messages to inspect")
	return cmd
}

func newUnsubRunCmd() *cobra.Command {
	var (
		method  int
		confirm bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run <id>",
		Short: "Execute one unsubscribe method (requires --confirm)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			result, err := c.Unsubscribe(context.Background(), args[0], mailbox, method, confirm, timeout)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().IntVar(&method, "method", 0, "method index from 'unsub find'")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "actually send the unsubscribe request")
	cmd.Flags().DurationVar(&timeout, "timeout", unsub.DefaultTimeout, "request timeout")
	return cmd
}

func newUnsubOpenCmd() *cobra.Command {
	var method int
	cmd := &cobra.Command{
		Use:   "open <id>",
		Short: "Open an unsubscribe link in the default browser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			report, err := c.FindUnsubscribe(args[0], mailbox)
			if err != nil {
				return err
			}
			if method < 0 || method >= len(report.Methods) {
				return fmt.Errorf("method index %d out of range (0-%d)", method, len(report.Methods)-1)
			}
			m := report.Methods[method]
			if m.Kind != unsub.KindHTTP {
				return fmt.Errorf("method %d is %s, not an http link", method, m.Kind)
			}
			if err := browser.OpenURL(m.Target); err != nil {
				return err
			}
			return printJSON(map[string]string{"opened": m.Target})
		},
	}
	cmd.Flags().IntVar(&method, "method", 0, "method index from 'unsub find'")
	return cmd
}

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage and run filter rules",
	}
	cmd.AddCommand(newRulesListCmd(), newRulesCreateCmd(), newRulesDeleteCmd(), newRulesApplyCmd())
	return cmd
}

func newRulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List filter rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			list, err := c.Rules()
			if err != nil {
				return err
			}
			return printJSON(list)
		},
	}
}

func newRulesCreateCmd() *cobra.Command {
	var (
		name      string
		condsJSON string
		actsJSON  string
		disabled  bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a filter rule from JSON conditions and actions",
		Long: `Create a filter rule. Conditions and actions are JSON arrays, e.g.

  mailsweep rules create --name "archive news" \
    --conditions '[{"kind":"from_contains","value":"newsletter"}]' \
    --actions '[{"kind":"mark_as_read"},{"kind":"move_to_folder","value":"Archive"}]'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var conds []rules.Condition
			if err := json.Unmarshal([]byte(condsJSON), &conds); err != nil {
				return fmt.Errorf("parsing --conditions failed: %w", err)
			}
			var acts []rules.Action
			if err := json.Unmarshal([]byte(actsJSON), &acts); err != nil {
				return fmt.Errorf("parsing --actions failed: %w", err)
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			rule, err := c.CreateRule(name, conds, acts, !disabled)
			if err != nil {
				return err
			}
			return printJSON(rule)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "rule name")
	cmd.Flags().StringVar(&condsJSON, "conditions", "", "JSON array of conditions")
	cmd.Flags().StringVar(&actsJSON, "actions", "", "JSON array of actions")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "create the rule disabled")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("conditions")
	cmd.MarkFlagRequired("actions")
	return cmd
}

func newRulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a filter rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			if err := c.DeleteRule(args[0]); err != nil {
				return err
			}
			return printJSON(map[string]string{"deleted": args[0]})
		},
	}
}

func newRulesApplyCmd() *cobra.Command {
	var limit, chunk int
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Run all enabled rules over recent messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			var result rules.ApplyResult
			if chunk > 0 {
				result, err = c.ApplyRulesChunked(mailbox, limit, chunk)
			} else {
				result, err = c.ApplyRules(mailbox, limit)
			}
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "restrict to the most recent N messages (0 = all)")
	cmd.Flags().IntVar(&chunk, "chunk", 0, "process in chunks of N, persisting rule stats per chunk")
	return cmd
}

func resolveFlag(name string) (string, error) {
	switch strings.ToLower(name) {
	case "seen", "read":
		return imapmail.FlagSeen, nil
	case "flagged", "important", "starred":
		return imapmail.FlagFlagged, nil
	case "deleted":
		return imapmail.FlagDeleted, nil
	default:
		return "", fmt.Errorf("unknown flag %q (want seen, flagged, or deleted)", name)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
