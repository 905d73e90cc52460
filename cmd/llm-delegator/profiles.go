package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/cecil-the-coder/llm-delegator/pkg/config"
	"github.com/cecil-the-coder/llm-delegator/pkg/server"
	"github.com/cecil-the-coder/llm-delegator/pkg/types"
)

var (
	colorActive = lipgloss.Color("42")
	colorDim    = lipgloss.Color("241")

	headerStyle = lipgloss.NewStyle().Bold(true)
	activeStyle = lipgloss.NewStyle().Foreground(colorActive).Bold(true)
	rowStyle    = lipgloss.NewStyle()
	dimStyle    = lipgloss.NewStyle().Foreground(colorDim)
)

func newProfilesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the profiles in the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ResolvePath(opts.configPath)
			profiles, active, err := config.ListProfiles(path)
			if err != nil {
				return err
			}
			if opts.profile != "" {
				active = opts.profile
			}
			renderProfiles(cmd.OutOrStdout(), path, profiles, active)
			return nil
		},
	}
}

func renderProfiles(w io.Writer, path string, profiles map[string]config.Profile, active string) {
	if len(profiles) == 0 {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("No profiles in %s; using %s and %s", path, config.EnvBaseURL, config.EnvAPIKey)))
		return
	}

	file := config.File{Profiles: profiles}
	names := file.ProfileNames()

	nameWidth, kindWidth, modelWidth := len("PROFILE"), len("PROVIDER"), len("MODEL")
	for _, name := range names {
		p := profiles[name]
		nameWidth = max(nameWidth, len(name))
		kindWidth = max(kindWidth, len(providerKind(p)))
		modelWidth = max(modelWidth, len(p.Model))
	}

	cell := func(s string, width int) string {
		return lipgloss.NewStyle().Width(width + 2).Render(s)
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Profiles in %s", path)))
	fmt.Fprintln(w, dimStyle.Render("  "+cell("PROFILE", nameWidth)+cell("PROVIDER", kindWidth)+cell("MODEL", modelWidth)+"BASE URL"))
	for _, name := range names {
		p := profiles[name]
		marker, style := "  ", rowStyle
		if name == active {
			marker, style = "* ", activeStyle
		}
		line := marker + cell(name, nameWidth) + cell(providerKind(p), kindWidth) + cell(p.Model, modelWidth) + p.BaseURL
		fmt.Fprintln(w, style.Render(line))
	}

	if _, ok := profiles[active]; !ok && active != "" {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("active profile '%s' is not defined", active)))
	}
}

func providerKind(p config.Profile) string {
	if p.Provider == "" {
		return string(types.ProviderTypeOpenAICompatible)
	}
	return p.Provider
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (MCP %s)\n", server.Name, version, server.ProtocolVersion)
		},
	}
}
