package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
)

// Custom help styles
var (
	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true).
			MarginBottom(1)

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(primaryColor).
				MarginTop(1)

	helpCommandStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#00AAAA")).
				Bold(true)

	helpFlagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00AA00")).
			Bold(true)

	helpDefaultStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				Italic(true)
)

// StyledHelpPrinter creates a custom help printer with Lipgloss styling.
// It prints the selected command's help, or the command list at the root.
func StyledHelpPrinter(options kong.HelpOptions) func(options kong.HelpOptions, ctx *kong.Context) error {
	return func(options kong.HelpOptions, ctx *kong.Context) error {
		root := ctx.Model.Node
		node := ctx.Selected()
		if node == nil {
			node = root
		}

		var sb strings.Builder

		sb.WriteString(helpTitleStyle.Render("cleanspeech 🎧"))
		sb.WriteString("\n")
		desc := root.Help
		if node != root && node.Help != "" {
			desc = node.Help
		}
		sb.WriteString(helpDescStyle.Render(desc))
		sb.WriteString("\n")

		sb.WriteString(helpSectionStyle.Render("Usage:"))
		sb.WriteString("\n  ")
		if node == root {
			sb.WriteString(fmt.Sprintf("%s <command> [flags]", ctx.Model.Name))
		} else {
			sb.WriteString(fmt.Sprintf("%s %s [flags]", ctx.Model.Name, node.Name))
		}
		sb.WriteString("\n")

		if cmds := getCommands(node); len(cmds) > 0 {
			sb.WriteString("\n")
			sb.WriteString(helpSectionStyle.Render("Commands:"))
			sb.WriteString("\n")
			width := 0
			for _, c := range cmds {
				width = max(width, len(c.name))
			}
			for _, c := range cmds {
				sb.WriteString("  ")
				sb.WriteString(helpCommandStyle.Render(fmt.Sprintf("%-*s", width, c.name)))
				sb.WriteString("  ")
				sb.WriteString(c.help)
				sb.WriteString("\n")
			}
		}

		writeFlags(&sb, "Flags:", getFlags(node, true))
		if node != root {
			writeFlags(&sb, "Global Flags:", getFlags(root, false))
		}

		sb.WriteString("\n")
		fmt.Fprint(ctx.Stdout, sb.String())
		return nil
	}
}

type command struct {
	name string
	help string
}

type flag struct {
	flags      string
	help       string
	defaultVal string
}

func writeFlags(sb *strings.Builder, title string, flags []flag) {
	if len(flags) == 0 {
		return
	}
	sb.WriteString("\n")
	sb.WriteString(helpSectionStyle.Render(title))
	sb.WriteString("\n")
	for _, f := range flags {
		sb.WriteString("  ")
		sb.WriteString(helpFlagStyle.Render(f.flags))
		if f.help != "" {
			sb.WriteString("  ")
			sb.WriteString(f.help)
		}
		if f.defaultVal != "" {
			sb.WriteString(" ")
			sb.WriteString(helpDefaultStyle.Render("(default: " + f.defaultVal + ")"))
		}
		sb.WriteString("\n")
	}
}

func getCommands(node *kong.Node) []command {
	var cmds []command
	for _, child := range node.Children {
		if child.Type != kong.CommandNode || child.Hidden {
			continue
		}
		cmds = append(cmds, command{name: child.Name, help: child.Help})
	}
	return cmds
}

func getFlags(node *kong.Node, withHelp bool) []flag {
	var flags []flag

	if withHelp {
		flags = append(flags, flag{
			flags: "-h, --help",
			help:  "Show context-sensitive help.",
		})
	}

	for _, f := range node.Flags {
		if f.Name == "help" || f.Hidden {
			continue
		}

		flagStr := ""
		if f.Short != 0 {
			flagStr = fmt.Sprintf("-%c, --%s", f.Short, f.Name)
		} else {
			flagStr = fmt.Sprintf("--%s", f.Name)
		}

		if !f.IsBool() {
			placeholder := f.PlaceHolder
			if placeholder == "" {
				placeholder = f.Name
			}
			flagStr += "=" + strings.ToUpper(placeholder)
		}

		flags = append(flags, flag{
			flags:      flagStr,
			help:       f.Help,
			defaultVal: f.Default,
		})
	}

	return flags
}
