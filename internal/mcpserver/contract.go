package mcpserver

// SeedFormatContract describes the Markdown layout seed documents are
// expected to follow.
const SeedFormatContract = `# Seed Document Format

Every seed lives in the library directory as ` + "`<seed_id>.md`" + `.
The identifier starts with a two-digit seed number (` + "`04_agent_connect`" + `).

## Structure

` + "```" + `markdown
---
name: Agent Connect        # OPTIONAL, display name in reports
category: coordination     # OPTIONAL, any other key: value pairs
---

# Seed 04: Agent Connect

## What It Is

One paragraph. The first 200 characters become the suggestion preview.

## Checks

- Observable properties of a correct application.
` + "```" + `

## Rules

1. The header is optional. When present it opens the file with ` + "`---`" + ` and
   closes with the next ` + "`---`" + ` line. Each line is ` + "`key: value`" + `; lines
   without a colon are ignored.
2. Only ` + "`name`" + ` is interpreted. Without it the identifier is shown.
3. ` + "`## What It Is`" + ` is matched exactly (case-sensitive). A seed without it
   is still suggested, just without a preview.
4. A section ends at the next heading of level one or two.
5. Seeds are suggested only when the Trigger Index has an entry for the
   identifier. Use the ` + "`list_seeds`" + ` tool to spot documents that are not indexed.
`
