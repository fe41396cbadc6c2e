package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/onionboard/internal/api"
	"github.com/nao1215/onionboard/internal/manager"
	"github.com/nao1215/onionboard/internal/model"
	"github.com/spf13/cobra"
)

// NewSettingsCmd creates the settings command and its resource subcommands.
func NewSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage keywords, user agents and the watchlist",
		Long: `Settings manages the backend's configuration lists:

  keywords     words that file a scanned thread under a category
  user-agents  User-Agent strings rotated when a scan asks for it
  watchlist    addresses re-scanned on a fixed interval

Every change prints the list as reloaded from the backend.

Examples:
  onionboard settings keywords add --word carding --category Fraud
  onionboard settings watchlist add --url exampleforum --interval-minutes 30
  onionboard settings watchlist update 3 --is-active false
  onionboard settings user-agents delete 2
  onionboard settings watchlist toggle-all --active=false`,
		Args: cobra.NoArgs,
	}

	cmd.AddCommand(newResourceCmd("keywords", "Manage categorisation keywords",
		manager.KeywordSchema(),
		func(c *api.Client) manager.Backend[model.Keyword] { return c.Keywords() },
		printKeywords,
	))
	cmd.AddCommand(newResourceCmd("user-agents", "Manage the user agent rotation list",
		manager.UserAgentSchema(),
		func(c *api.Client) manager.Backend[model.UserAgent] { return c.UserAgents() },
		printUserAgents,
	))

	watchlist := newResourceCmd("watchlist", "Manage periodically re-scanned addresses",
		manager.WatchlistSchema(),
		func(c *api.Client) manager.Backend[model.WatchlistEntry] { return c.Watchlist() },
		printWatchlist,
	)
	watchlist.AddCommand(newToggleAllCmd())
	cmd.AddCommand(watchlist)

	cmd.AddCommand(newRandomUACmd())

	return cmd
}

// resourceCmd builds the list/add/update/delete commands of one resource.
type resourceCmd[T any] struct {
	schema  manager.Schema[T]
	backend func(*api.Client) manager.Backend[T]
	show    func(io.Writer, []T) error
}

func newResourceCmd[T any](
	name, short string,
	schema manager.Schema[T],
	backend func(*api.Client) manager.Backend[T],
	show func(io.Writer, []T) error,
) *cobra.Command {
	r := &resourceCmd[T]{schema: schema, backend: backend, show: show}

	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List " + name,
		Args:  cobra.NoArgs,
		RunE:  r.runList,
	}
	list.Flags().BoolP("json", "j", false, "Output as JSON")

	add := &cobra.Command{
		Use:   "add",
		Short: "Add an entry to " + name,
		Args:  cobra.NoArgs,
		RunE:  r.runAdd,
	}
	r.addFieldFlags(add)

	update := &cobra.Command{
		Use:   "update [id]",
		Short: "Change fields of one entry; unset flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE:  r.runUpdate,
	}
	r.addFieldFlags(update)

	del := &cobra.Command{
		Use:     "delete [id]",
		Aliases: []string{"rm"},
		Short:   "Delete one entry",
		Args:    cobra.ExactArgs(1),
		RunE:    r.runDelete,
	}

	cmd.AddCommand(list, add, update, del)
	return cmd
}

// flagName maps a schema field to its flag: interval_minutes becomes
// --interval-minutes.
func flagName(field string) string {
	return strings.ReplaceAll(field, "_", "-")
}

func (r *resourceCmd[T]) addFieldFlags(cmd *cobra.Command) {
	for _, f := range r.schema.Fields {
		usage := f.Label
		if f.Required {
			usage += " (required)"
		}
		cmd.Flags().String(flagName(f.Name), "", usage)
	}
}

// changedFields returns the schema fields whose flag was set, in schema order.
func (r *resourceCmd[T]) changedFields(cmd *cobra.Command) (names, values []string, err error) {
	for _, f := range r.schema.Fields {
		flag := flagName(f.Name)
		if !cmd.Flags().Changed(flag) {
			continue
		}
		v, err := cmd.Flags().GetString(flag)
		if err != nil {
			return nil, nil, err
		}
		names = append(names, f.Name)
		values = append(values, v)
	}
	return names, values, nil
}

// open returns a manager with the current list loaded.
func (r *resourceCmd[T]) open(cmd *cobra.Command) (*clientEnv, *manager.Manager[T], error) {
	env, err := newAuthedEnv(cmd)
	if err != nil {
		return nil, nil, err
	}
	mgr := manager.New[T](r.backend(env.client), r.schema, manager.WithLogger(env.logger))

	ctx, cancel := commandContext(cmd)
	defer cancel()
	if err := mgr.Reload(ctx); err != nil {
		return nil, nil, apiError(err, "failed to load "+r.schema.Name)
	}
	return env, mgr, nil
}

func (r *resourceCmd[T]) runList(cmd *cobra.Command, _ []string) error {
	env, mgr, err := r.open(cmd)
	if err != nil {
		return err
	}
	if jsonFlag(cmd) {
		return writeJSON(env.out, mgr.Items())
	}
	return r.show(env.out, mgr.Items())
}

func (r *resourceCmd[T]) runAdd(cmd *cobra.Command, _ []string) error {
	names, values, err := r.changedFields(cmd)
	if err != nil {
		return err
	}
	env, mgr, err := r.open(cmd)
	if err != nil {
		return err
	}
	for i, name := range names {
		if err := mgr.SetNewField(name, values[i]); err != nil {
			return err
		}
	}
	if err := r.schema.Validate(mgr.Form()); err != nil {
		return fmt.Errorf("%w (set it with --%s)", err, flagName(r.firstMissing(mgr.Form())))
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	if err := mgr.Create(ctx); err != nil {
		return apiError(err, "add failed")
	}
	return r.show(env.out, mgr.Items())
}

// firstMissing returns the first empty required field of item.
func (r *resourceCmd[T]) firstMissing(item T) string {
	for _, f := range r.schema.Fields {
		if f.Required && strings.TrimSpace(f.Get(item)) == "" {
			return f.Name
		}
	}
	return ""
}

func (r *resourceCmd[T]) runUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	names, values, err := r.changedFields(cmd)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("nothing to update: set at least one of --%s",
			strings.Join(mapNames(r.schema.FieldNames()), ", --"))
	}

	env, mgr, err := r.open(cmd)
	if err != nil {
		return err
	}
	if err := mgr.StartEdit(id); err != nil {
		return err
	}
	for i, name := range names {
		if err := mgr.SetEditField(name, values[i]); err != nil {
			mgr.CancelEdit()
			return err
		}
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	if err := mgr.SaveEdit(ctx); err != nil {
		return apiError(err, "update failed")
	}
	return r.show(env.out, mgr.Items())
}

func (r *resourceCmd[T]) runDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	env, mgr, err := r.open(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	if err := mgr.Delete(ctx, id); err != nil {
		return apiError(err, "delete failed")
	}
	return r.show(env.out, mgr.Items())
}

func mapNames(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = flagName(f)
	}
	return out
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func newToggleAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toggle-all",
		Short: "Activate or pause every watchlist entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			active, err := cmd.Flags().GetBool("active")
			if err != nil {
				return err
			}
			env, err := newAuthedEnv(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := env.client.ToggleWatchlist(ctx, active); err != nil {
				return apiError(err, "toggle failed")
			}
			// The dashboard shows this flag on the settings tab.
			if err := env.sess.SetWatchlistEnabled(active); err != nil {
				env.logger.Warn("failed to persist watchlist flag", "error", err)
			}

			entries, err := env.client.Watchlist().List(ctx)
			if err != nil {
				return apiError(err, "failed to load watchlist")
			}
			return printWatchlist(env.out, entries)
		},
	}
	cmd.Flags().Bool("active", true, "Set every entry active (false pauses them)")
	return cmd
}

func newRandomUACmd() *cobra.Command {
	return &cobra.Command{
		Use:       "random-ua [on|off]",
		Short:     "Show or set the random user agent preference used by scans",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newClientEnv(cmd)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				var enabled bool
				switch strings.ToLower(args[0]) {
				case "on", "true":
					enabled = true
				case "off", "false":
				default:
					return fmt.Errorf("expected on or off, got %q", args[0])
				}
				if err := env.sess.SetRandomUA(enabled); err != nil {
					return fmt.Errorf("failed to store preference: %w", err)
				}
			}
			state := "off"
			if env.sess.RandomUA() {
				state = "on"
			}
			fmt.Fprintf(env.out, "Random user agent: %s\n", state)
			return nil
		},
	}
}

func printKeywords(w io.Writer, items []model.Keyword) error {
	if len(items) == 0 {
		fmt.Fprintln(w, "No keywords.")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tWORD\tCATEGORY\tCOLOR")
	for _, k := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", k.ID, k.Word, k.Category, orDash(k.Color))
	}
	return tw.Flush()
}

func printUserAgents(w io.Writer, items []model.UserAgent) error {
	if len(items) == 0 {
		fmt.Fprintln(w, "No user agents.")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tUSER-AGENT")
	for _, u := range items {
		fmt.Fprintf(tw, "%d\t%s\n", u.ID, u.UserAgent)
	}
	return tw.Flush()
}

func printWatchlist(w io.Writer, items []model.WatchlistEntry) error {
	if len(items) == 0 {
		fmt.Fprintln(w, "Watchlist is empty.")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tURL\tINTERVAL\tACTIVE\tLAST CHECKED\tNEXT CHECK\tDESCRIPTION")
	for _, e := range items {
		fmt.Fprintf(tw, "%d\t%s\t%dm\t%t\t%s\t%s\t%s\n",
			e.ID, e.URL, e.IntervalMinutes, e.IsActive,
			formatTimePtr(e.LastChecked), formatTimePtr(e.NextCheck), orDash(e.Description))
	}
	return tw.Flush()
}
