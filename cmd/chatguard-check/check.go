package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mikey/chatguard/internal/config"
	"github.com/mikey/chatguard/internal/core"
	"github.com/mikey/chatguard/internal/rules"
	"github.com/spf13/cobra"
)

// consolePlayer is the author of offline checks
type consolePlayer struct {
	permissions map[string]bool
}

func (p consolePlayer) ID() core.PlayerID { return "console" }
func (p consolePlayer) Name() string { return "console" }
func (p consolePlayer) HasPermission(perm string) bool { return p.permissions[perm] }
func (p consolePlayer) IsVanished() bool { return false }
func (p consolePlayer) IsLoggedIn() bool { return true }
func (p consolePlayer) Location() core.Location { return core.Location{} }

// readySession is an always loaded, unmuted session
type readySession struct{}

func (readySession) IsReady() bool { return true }
func (readySession) Data() *core.SessionData { return &core.SessionData{PlayerID: "console"} }

// checkReport is what the check command prints
type checkReport struct {
	Category  core.Category `json:"category"`
	Lines     []string      `json:"lines"`
	Changed   bool          `json:"changed"`
	Silent    bool          `json:"cancelled_silently"`
	NoLogging bool          `json:"logging_ignored"`
	NoSpying  bool          `json:"spying_ignored"`
	Denied    bool          `json:"denied"`
	Rule      string        `json:"rule,omitempty"`
	Reason    string        `json:"reason,omitempty"`
}

func newCheckCmd(flags *rootFlags) *cobra.Command {
	var (
		category    string
		permissions []string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "check <text>...",
		Short: "Evaluate text against the configured rules",
		Long:  "Evaluate text against the configured rules. Each argument is one line, signs take up to four.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ok := core.ParseCategory(category)
			if !ok {
				return fmt.Errorf("unknown category %q", category)
			}

			container, err := flags.container()
			if err != nil {
				return err
			}

			var report checkReport
			err = container.Invoke(func(cfg *config.Config, engine *rules.Engine) error {
				mode, err := modeFor(cfg, c)
				if err != nil {
					return err
				}
				report, err = evaluate(cmd.Context(), engine, c, args, mode, permissions)
				return err
			})
			if err != nil {
				return err
			}
			return writeReport(cmd, report, asJSON)
		},
	}

	cmd.Flags().StringVar(&category, "category", string(core.CategoryChat), "Category the text is checked as")
	cmd.Flags().StringSliceVar(&permissions, "permission", nil, "Permission granted to the author, repeatable")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

// modeFor picks the fragmentation policy the pipeline uses for category
func modeFor(cfg *config.Config, c core.Category) (rules.Mode, error) {
	colors := make(map[string]bool)
	for _, s := range cfg.GetMessages().ColorsApplyOn {
		colors[s] = true
	}

	switch c {
	case core.CategoryChat:
		return rules.ChatMode(), nil
	case core.CategorySign:
		checkMode, err := cfg.GetSignCheckMode()
		if err != nil {
			return rules.Mode{}, err
		}
		return rules.SignMode(checkMode, colors[string(core.SurfaceSign)]), nil
	case core.CategoryAnvilRename:
		return rules.RenameMode(colors[string(core.SurfaceAnvil)]), nil
	case core.CategoryMail:
		return rules.MailMode(), nil
	}
	return rules.Mode{WholeText: true, Surface: core.SurfaceChat}, nil
}

func evaluate(ctx context.Context, engine *rules.Engine, c core.Category, lines []string, mode rules.Mode, permissions []string) (checkReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	author := consolePlayer{permissions: make(map[string]bool, len(permissions))}
	for _, p := range permissions {
		author.permissions[p] = true
	}
	mctx := core.NewContext(author, readySession{}, c)

	eval, err := engine.Evaluate(ctx, c, mctx, lines, mode)
	if cerr, ok := core.AsCancelled(err); ok {
		return checkReport{
			Category: c,
			Lines:    lines,
			Silent:   cerr.Silent,
			Denied:   !cerr.Silent,
			Rule:     cerr.Rule,
			Reason:   cerr.Reason,
		}, nil
	}
	if err != nil {
		return checkReport{}, err
	}

	return checkReport{
		Category:  c,
		Lines:     eval.Lines,
		Changed:   eval.TextChanged,
		Silent:    eval.CancelledSilently,
		NoLogging: eval.LoggingIgnored,
		NoSpying:  eval.SpyingIgnored,
	}, nil
}

func writeReport(cmd *cobra.Command, report checkReport, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	switch {
	case report.Denied:
		_, err := fmt.Fprintf(out, "denied by %s (%s)\n", report.Rule, report.Reason)
		return err
	case report.Silent && report.Reason != "":
		_, err := fmt.Fprintf(out, "cancelled silently (%s)\n", report.Reason)
		return err
	}

	var flags []string
	if report.Changed {
		flags = append(flags, "rewritten")
	}
	if report.Silent {
		flags = append(flags, "cancelled silently")
	}
	if report.NoLogging {
		flags = append(flags, "not logged")
	}
	if report.NoSpying {
		flags = append(flags, "not spied")
	}
	if len(flags) == 0 {
		flags = append(flags, "passed")
	}

	if _, err := fmt.Fprintln(out, strings.Join(flags, ", ")); err != nil {
		return err
	}
	for _, line := range report.Lines {
		if _, err := fmt.Fprintf(out, "  %s\n", line); err != nil {
			return err
		}
	}
	return nil
}
