package mcpserver

// QuerySyntaxReference describes the query grammar the search tool
// accepts. LLM consumers should consult it before composing anything
// beyond a plain keyword query.
const QuerySyntaxReference = `# Raido Query Syntax Reference

A query is plain text, optionally composed with boolean operators.

## Composition

` + "```" + `
alpha OR beta AND gamma
` + "```" + `

1. **OR splits first.** The query is split on ` + "`" + ` OR ` + "`" + ` (uppercase,
   space-delimited); every operand is evaluated and the results are
   merged, duplicates removed.
2. **AND splits second.** Each OR operand is split on ` + "`" + ` AND ` + "`" + `;
   a record must match every conjunct.
3. **One level deep.** There is no grouping and no parentheses;
   ` + "`" + `a AND b OR c` + "`" + ` means ` + "`" + `(a AND b) OR (c)` + "`" + `.
4. Lowercase ` + "`" + `or` + "`" + `/` + "`" + `and` + "`" + ` are ordinary words, not operators.

## Atomic filters

| Form | Meaning |
|------|---------|
| ` + "`" + `*` + "`" + `, ` + "`" + `all` + "`" + `, ` + "`" + `everything` + "`" + ` | every page |
| ` + "`" + `empty` + "`" + `, ` + "`" + `no content` + "`" + `, ` + "`" + `blank` + "`" + ` | pages with no meaningful content |
| ` + "`" + `property:key=value` + "`" + ` | pages carrying the property with that value |
| ` + "`" + `date:today` + "`" + ` | journal pages and dated pages in the range; also ` + "`" + `yesterday` + "`" + `, ` + "`" + `last-week` + "`" + `, ` + "`" + `last-month` + "`" + `, ` + "`" + `YYYY-MM-DD` + "`" + ` |
| ` + "`" + `templates:*` + "`" + ` or ` + "`" + `templates:all` + "`" + ` | every template page |
| ` + "`" + `template:"Name"` + "`" + ` | templates whose name contains Name |
| ` + "`" + `backlinks:"Page"` + "`" + ` | pages that link to Page (` + "`" + `[[Page]]` + "`" + `, ` + "`" + `#Page` + "`" + `) |
| ` + "`" + `references:"Page"` + "`" + ` | like backlinks, plus bare name mentions |
| anything else | free-text match against page names and block content |

Quoted phrases (` + "`" + `"exact phrase"` + "`" + `) match as their bare text and are
ranked with a strong exact-phrase boost.

## Request fields

- ` + "`" + `target` + "`" + `: pages, blocks, templates, tasks, properties, both (default both)
- ` + "`" + `scope` + "`" + `: namespace, journal (bool), page_titles (list), tag
- ` + "`" + `filter` + "`" + `: length min/max, properties any/all, tags any/all,
  created/updated after/before, contains, exclude
- ` + "`" + `sort` + "`" + `: relevance, created, updated, title, length (default relevance)
- ` + "`" + `order` + "`" + `: asc or desc (default desc)
- ` + "`" + `limit` + "`" + `: 1-100 (default 20); requests above 100 are rejected
- ` + "`" + `cursor` + "`" + `: opaque continuation token from a previous response

## Results

Responses carry ` + "`" + `results` + "`" + `, ` + "`" + `total_found` + "`" + `, ` + "`" + `has_more` + "`" + ` and, when
more data is available, ` + "`" + `next_cursor` + "`" + ` to pass back as ` + "`" + `cursor` + "`" + `.
`
