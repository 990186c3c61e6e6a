package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"axlab.dev/meta/pkg/meta"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

const shellPrompt = "meta> "

var (
	shellOpts = struct {
		history string
	}{}

	shellCmd = &cobra.Command{
		Use:   "shell",
		Short: "Interactive shell over the registry",
		Long: "Read commands interactively. Available commands:\n\n" +
			"  call TARGET ARGS...       invoke scope.function or Class.function\n" +
			"  new CLASS ARGS...         construct a class object\n" +
			"  method $VAR NAME ARGS...  invoke a method on a variable\n" +
			"  addr $VAR                 pointer to a variable\n" +
			"  get $VAR MEMBER           read a member\n" +
			"  set $VAR MEMBER VALUE     write a member\n" +
			"  enum ENUM NAME|VALUE      look up an enum value\n" +
			"  types [PATTERN]           list registered types\n" +
			"  dump [PATTERN]            dump registered types as YAML\n" +
			"  vars                      list variables\n" +
			"  let $VAR = COMMAND...     store the result of a command\n",
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			runShell(newSession(meta.Types(), cmd.OutOrStdout()), shellOpts.history)
		},
	}
)

func init() {
	history := ""
	if home, err := os.UserHomeDir(); err == nil {
		history = filepath.Join(home, ".metainfo_history")
	}
	shellCmd.Flags().StringVar(&shellOpts.history, "history", history, "history file, empty to disable")
}

func runShell(s *session, history string) {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(s.complete)

	if history != "" {
		if f, err := os.Open(history); err == nil {
			ln.ReadHistory(f)
			f.Close()
		}
		defer func() {
			if f, err := os.Create(history); err == nil {
				ln.WriteHistory(f)
				f.Close()
			}
		}()
	}

	for {
		line, err := ln.Prompt(shellPrompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		} else if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			return
		} else if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "quit", "exit":
			return
		}

		ln.AppendHistory(line)
		if err := s.Run(line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

// Completes the last word of the line from commands, variables, scopes and
// registered type names.
func (s *session) complete(line string) (out []string) {
	head, word := "", line
	if i := strings.LastIndexAny(line, " \t"); i >= 0 {
		head, word = line[:i+1], line[i+1:]
	}

	var words []string
	if head == "" {
		words = commandNames
	} else {
		for name := range s.vars {
			words = append(words, "$"+name)
		}
		words = append(words, s.types.Scopes()...)
		for _, it := range registeredTypes(s.types, "*") {
			words = append(words, it.Reflect().Name())
		}
	}

	for _, it := range words {
		if strings.HasPrefix(it, word) {
			out = append(out, head+it)
		}
	}
	return out
}
