// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

// Id identifies a catalog entry.
type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	ResourceDefsMissingId
	ResourceNotFoundId
	DefinitionLoadFailedId
	DefinitionGetFailedId
	NothingAppliedId
	ShellNotFoundId
	LaunchFailedId
	CatalogUnavailableId
)

type (
	// MarkdownMsg is Markdown text rendered with glamour.
	MarkdownMsg string

	// HttpLink is a documentation or external link.
	HttpLink string

	// Issue is a catalog entry with guidance for one failure class.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

func (i *Issue) Id() Id { return i.id }

func (i *Issue) MarkdownMsg() MarkdownMsg { return i.mdMsg }

func (i *Issue) DocLinks() []HttpLink { return slices.Clone(i.docLinks) }

func (i *Issue) ExtLinks() []HttpLink { return slices.Clone(i.extLinks) }

// Render renders the guidance, with a "See also" list when the issue carries
// links. stylePath is a glamour style name or file.
func (i *Issue) Render(stylePath string) (string, error) {
	var sb strings.Builder
	sb.WriteString(string(i.mdMsg))
	if links := append(i.DocLinks(), i.extLinks...); len(links) > 0 {
		sb.WriteString("\n\n## See also\n")
		for _, link := range links {
			sb.WriteString("\n- <" + string(link) + ">")
		}
	}
	return render(sb.String(), stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

srm reads a JSON configuration file before doing anything else.

## Where srm looks
1. The path given with ` + "`-c/--config`" + `
2. ` + "`$SRM_CONFIG`" + `
3. ` + "`~/.srm.json`" + `

## Things you can try:
- Create a minimal configuration:
~~~json
{
  "resource_defs": "~/.srm",
  "db_path": "~/.srm/srm.db"
}
~~~
- Check the file is valid JSON (no comments, no trailing commas)
- Remove keys srm does not know about`,
	}

	resourceDefsMissingIssue = &Issue{
		id: ResourceDefsMissingId,
		mdMsg: `
# No resource definitions directory!

The ` + "`resource_defs`" + ` setting is empty, so srm has nowhere to look for resources.

## Things you can try:
- Set ` + "`resource_defs`" + ` in your configuration file
- Or export it for a single run:
~~~
$ SRM_RESOURCE_DEFS=~/.srm srm get gcc/7.2
~~~`,
	}

	resourceNotFoundIssue = &Issue{
		id: ResourceNotFoundId,
		mdMsg: `
# Resource not found!

No definition file exists for the requested name. srm looks for
` + "`{resource_defs}/{name}/srm_def.sh`" + `, then ` + "`.go`" + `, ` + "`.cue`" + ` and ` + "`.toml`" + `.

## Things you can try:
- List the resources srm can see:
~~~
$ srm avail
~~~
- Check the name for typos; names are used verbatim as directories`,
	}

	definitionLoadFailedIssue = &Issue{
		id: DefinitionLoadFailedId,
		mdMsg: `
# Failed to load a resource definition!

The definition file could not be read, parsed, or its top-level code failed.
Nothing was launched.

## What each kind must provide:
- **sh**: a shell function named ` + "`get`" + `
- **go**: ` + "`package main`" + ` with ` + "`func Get(svc srm.Services, env map[string]string)`" + `
- **cue** / **toml**: only the keys ` + "`unset`" + `, ` + "`set`" + `, ` + "`prepend`" + `, ` + "`append`" + `

## Example shell definition:
~~~sh
get() {
  export CC=/opt/gcc/7.2/bin/gcc
  export PATH="/opt/gcc/7.2/bin:$PATH"
}
~~~`,
	}

	definitionGetFailedIssue = &Issue{
		id: DefinitionGetFailedId,
		mdMsg: `
# A resource definition failed while applying!

The definition loaded, but its ` + "`get`" + ` entry point returned an error.
Resources applied before it are discarded; nothing was launched.

## Things you can try:
- Re-run with debug logging to see definition output:
~~~
$ srm -l debug get <name>
~~~
- Run ` + "`srm info <name>`" + ` to check the definition loads`,
	}

	nothingAppliedIssue = &Issue{
		id: NothingAppliedId,
		mdMsg: `
# No resources were applied!

None of the requested names resolved to a definition, so there is no
environment to launch.

## Things you can try:
- List available resources:
~~~
$ srm avail
~~~
- Check ` + "`resource_defs`" + ` points at the right directory`,
	}

	shellNotFoundIssue = &Issue{
		id: ShellNotFoundId,
		mdMsg: `
# Shell not found!

srm could not find a shell to start.

## Shells srm looks for, in order:
1. ` + "`--shell`" + `
2. ` + "`$SHELL`" + ` in the composed environment
3. ` + "`bash`" + `, then ` + "`sh`" + ` on ` + "`PATH`" + `

## Things you can try:
- Pass a shell explicitly:
~~~
$ srm get --shell /bin/zsh gcc/7.2
~~~
- Make sure a resource did not remove the shell's directory from ` + "`PATH`",
	}

	launchFailedIssue = &Issue{
		id: LaunchFailedId,
		mdMsg: `
# Failed to start the shell!

The environment was composed but the shell could not be started.

## Things you can try:
- Check the shell path is executable
- Preview what would run without starting it:
~~~
$ srm get --dry-run <name>
~~~`,
	}

	catalogUnavailableIssue = &Issue{
		id: CatalogUnavailableId,
		mdMsg: `
# Resource catalog unavailable!

The catalog at ` + "`db_path`" + ` could not be opened. Only ` + "`register`" + ` and
` + "`info`" + ` use it; ` + "`get`" + ` works without it.

## Things you can try:
- Check the directory holding ` + "`db_path`" + ` exists and is writable
- Point ` + "`db_path`" + ` somewhere else in your configuration`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():     configLoadFailedIssue,
		resourceDefsMissingIssue.Id():  resourceDefsMissingIssue,
		resourceNotFoundIssue.Id():     resourceNotFoundIssue,
		definitionLoadFailedIssue.Id(): definitionLoadFailedIssue,
		definitionGetFailedIssue.Id():  definitionGetFailedIssue,
		nothingAppliedIssue.Id():       nothingAppliedIssue,
		shellNotFoundIssue.Id():        shellNotFoundIssue,
		launchFailedIssue.Id():         launchFailedIssue,
		catalogUnavailableIssue.Id():   catalogUnavailableIssue,
	}
)

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
