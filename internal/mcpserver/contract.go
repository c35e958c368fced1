package mcpserver

// NoteFormatContract describes the Markdown syntax the index understands,
// for LLM clients writing notes.
const NoteFormatContract = `# quire Note Format

Notes are UTF-8 Markdown files ending in ` + "`.md`" + ` anywhere under the vault
root. Folders named ` + "`.quire`" + `, ` + "`images`" + ` and ` + "`.git`" + ` are ignored. A note's
title is its file name without the extension.

## Links

- ` + "`[[Note Name]]`" + ` links to the first note whose file name matches,
  ignoring case and the ` + "`.md`" + ` suffix. Folders are not part of the name.
- ` + "`[[Note Name#Heading]]`" + ` links to the same note; the part after ` + "`#`" + `
  names a heading inside it.
- Links to names that match no note are kept in the text but not indexed.

## Tags

` + "`#word`" + ` anywhere in the text is a tag. Tag characters are letters
(any script), digits and ` + "`_`" + `. ` + "`#project-x`" + ` is the tag ` + "`project`" + `.

## Todos

` + "```" + `markdown
- [ ] open task
* [x] finished task
  - [ ] subtask, indented under its parent
- [ ] pay rent @due(2024-04-01) !high @every(monthly)
` + "```" + `

- The marker is ` + "`-`" + ` or ` + "`*`" + `, then ` + "`[ ]`" + ` or ` + "`[x]`" + ` (either case).
- ` + "`@due(YYYY-MM-DD)`" + ` sets a due date.
- ` + "`!high`" + `, ` + "`!medium`" + ` or ` + "`!low`" + ` sets a priority.
- ` + "`@every(daily|weekly|monthly|<weekday>)`" + ` makes the todo recurring.
  Completing it appends the next instance to today's daily note in
  ` + "`Daily Notes/YYYY-MM-DD.md`" + `.

## Headings

Every ATX heading (` + "`#`" + ` to ` + "`######`" + `) is a block. Its id is the
heading text lowercased with runs of other characters replaced by ` + "`-`" + `:
` + "`## Setup Steps!`" + ` has id ` + "`setup-steps`" + `.

## Example

` + "```" + `markdown
# Weekly Review

Followed up on [[Project Apollo#Risks]]. #review

## Actions

- [ ] email the team @due(2024-03-18) !medium
  - [ ] attach the slides
- [ ] water plants @every(sunday)
` + "```" + `
`
