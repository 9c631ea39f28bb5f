package cli

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/plystrip/internal/config"
	"github.com/hupe1980/plystrip/internal/filter"
)

// registerChannelFlags adds the channel selection flags to a cobra command.
// The values are read back through config.Load, so flags override the
// PLYSTRIP_ environment and the config file.
func registerChannelFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringArray("exclude", nil, `exclusion pattern matched case-insensitively at the start of each vertex property name; repeatable (default "`+filter.DefaultPattern+`")`)
	f.String("profile", "", "channel profile: sh, degree-0, degree-1, degree-2 or a custom profile from the config file")
	f.Int("max-sh-degree", config.NoMaxSHDegree, "keep spherical-harmonic bands up to this degree and strip the remaining f_rest_* channels")

	_ = cmd.RegisterFlagCompletionFunc("profile", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return filter.BuiltinProfileNames(), cobra.ShellCompDirectiveNoFileComp
	})
}
