package query

import (
	"fmt"
	"strings"

	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
)

// Verb is a command loop keyword
type Verb string

const (
	VerbLoad     Verb = "load"
	VerbUse      Verb = "use"
	VerbNetworks Verb = "networks"
	VerbXQuery   Verb = "xquery"
	VerbRQuery   Verb = "rquery"
	VerbGQuery   Verb = "gquery"
	VerbCompare  Verb = "compare"
	VerbHistory  Verb = "history"
	VerbHelp     Verb = "help"
	VerbQuit     Verb = "quit"
)

// needsArg lists verbs whose argument is mandatory.
var needsArg = map[Verb]bool{
	VerbLoad:    true,
	VerbUse:     true,
	VerbXQuery:  true,
	VerbRQuery:  true,
	VerbGQuery:  true,
	VerbCompare: true,
}

var known = map[Verb]bool{
	VerbLoad: true, VerbUse: true, VerbNetworks: true, VerbXQuery: true, VerbRQuery: true,
	VerbGQuery: true, VerbCompare: true, VerbHistory: true, VerbHelp: true, VerbQuit: true,
}

// Command is one parsed line of the command loop
type Command struct {
	Verb Verb
	Arg  string
}

// ParseCommand splits a line into a case-insensitive verb and the rest of
// the line.
func ParseCommand(line string) (Command, error) {
	fields := strings.SplitN(strings.TrimSpace(line), " ", 2)
	verb := Verb(strings.ToLower(fields[0]))
	if verb == "" {
		return Command{}, fmt.Errorf("%w: empty command", internalerr.ErrInvalidQuery)
	}
	if !known[verb] {
		return Command{}, fmt.Errorf("%w: unknown command %q", internalerr.ErrInvalidQuery, fields[0])
	}

	cmd := Command{Verb: verb}
	if len(fields) == 2 {
		cmd.Arg = strings.TrimSpace(fields[1])
	}
	if needsArg[verb] && cmd.Arg == "" {
		return Command{}, fmt.Errorf("%w: %s needs an argument", internalerr.ErrInvalidQuery, verb)
	}
	return cmd, nil
}

// Usage lists the commands understood by the loop.
const Usage = `commands:
  load <path>          load a network file (.bn text or .yaml)
  use <name>           switch to a previously loaded network
  networks             list stored networks
  xquery <query>       exact inference by enumeration
  rquery <query>       rejection sampling
  gquery <query>       Gibbs sampling
  compare <query>      run all three and report sampler error
  history [n]          show recent queries
  quit                 exit
query syntax: Q  or  Q | X=x Y=y`
