package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/josephgoksu/PRDWing/internal/config"
	"github.com/josephgoksu/PRDWing/internal/ui"
)

var prefsCmd = &cobra.Command{
	Use:     "prefs",
	Aliases: []string{"preferences"},
	Short:   "Show or change your default tech stack preferences",
}

var prefsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show saved tech preferences",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := config.LoadPreferences()
		if isJSON() {
			return printJSON(cmd.OutOrStdout(), p)
		}
		if p.IsZero() {
			fmt.Fprintln(cmd.OutOrStdout(), ui.StyleSubtle.Render("No preferences saved. The model recommends a stack for each project."))
			return nil
		}
		t := &ui.Table{Headers: []string{"Layer", "Preference"}}
		for _, row := range [][2]string{
			{"frontend", p.Frontend},
			{"backend", p.Backend},
			{"database", p.Database},
			{"hosting", p.Hosting},
			{"additional", p.Additional},
		} {
			if row[1] != "" {
				t.Rows = append(t.Rows, []string{row[0], row[1]})
			}
		}
		fmt.Fprint(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Save tech preferences; pass an empty value to clear a field",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := config.LoadPreferences()
		fields := map[string]*string{
			"frontend":   &p.Frontend,
			"backend":    &p.Backend,
			"database":   &p.Database,
			"hosting":    &p.Hosting,
			"additional": &p.Additional,
		}
		changed := false
		for name, field := range fields {
			if cmd.Flags().Changed(name) {
				*field, _ = cmd.Flags().GetString(name)
				changed = true
			}
		}
		if !changed {
			return fmt.Errorf("nothing to set; pass at least one of --frontend, --backend, --database, --hosting, --additional")
		}
		if err := config.SavePreferences(p); err != nil {
			return err
		}
		if isJSON() {
			return printJSON(cmd.OutOrStdout(), p)
		}
		where := viper.ConfigFileUsed()
		if where == "" {
			where = "the global config file"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Preferences saved to %s\n", ui.Icon("✓", ui.StyleSuccess), where)
		return nil
	},
}

func init() {
	for _, name := range []string{"frontend", "backend", "database", "hosting", "additional"} {
		prefsSetCmd.Flags().String(name, "", "preferred "+name)
	}
	prefsCmd.AddCommand(prefsGetCmd, prefsSetCmd)
	rootCmd.AddCommand(prefsCmd)
}
