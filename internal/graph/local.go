package graph

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/starford/raido/internal/models"
)

var (
	propertyRe = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_-]*)::\s*(.*)$`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#\[?\[?([A-Za-z][A-Za-z0-9_/-]*)`)
)

// Local implements Provider over an on-disk graph directory with the usual
// pages/ and journals/ layout. Page files use "__" in the filename to
// encode "/" namespace separators; journal files are named YYYY_MM_DD.md.
type Local struct {
	root string
}

// NewLocal creates a provider rooted at the given graph directory.
// The directory must already exist.
func NewLocal(root string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("graph: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("graph: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("graph: root is not a directory: %s", abs)
	}
	return &Local{root: abs}, nil
}

// Root returns the absolute graph directory path.
func (l *Local) Root() string { return l.root }

// ListAllPages walks pages/ and journals/ and returns one page per .md file.
func (l *Local) ListAllPages(_ context.Context) ([]*models.Page, error) {
	var out []*models.Page
	for _, sub := range []string{"pages", "journals"} {
		base := filepath.Join(l.root, sub)
		if _, err := os.Stat(base); os.IsNotExist(err) {
			continue
		}
		err := filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			page := parsePage(d.Name(), sub == "journals", string(data))
			page.UpdatedAt = info.ModTime()
			out = append(out, page)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("graph: list pages: %w", err)
		}
	}
	return out, nil
}

// PageBlocks reads the named page's file and returns its bullet tree.
func (l *Local) PageBlocks(_ context.Context, page string) ([]*models.Block, error) {
	path, ok := l.pageFile(page)
	if !ok {
		return nil, fmt.Errorf("graph: page %q: %w", page, os.ErrNotExist)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("graph: read %s: %w", page, err)
	}
	return parseBlocks(page, string(data)), nil
}

// PageName derives the page name for a graph file path, or ok=false when
// the path is not a page file. Used by the watcher to target invalidation.
func (l *Local) PageName(path string) (string, bool) {
	rel, err := filepath.Rel(l.root, path)
	if err != nil || !strings.HasSuffix(rel, ".md") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	stem := strings.TrimSuffix(filepath.Base(rel), ".md")
	switch {
	case strings.HasPrefix(rel, "pages/"):
		return strings.ReplaceAll(stem, "__", "/"), true
	case strings.HasPrefix(rel, "journals/"):
		return strings.ReplaceAll(stem, "_", "-"), true
	}
	return "", false
}

// pageFile resolves a page name back to its file, trying the pages/ and
// journals/ encodings in turn.
func (l *Local) pageFile(page string) (string, bool) {
	candidates := []string{
		filepath.Join(l.root, "pages", strings.ReplaceAll(page, "/", "__")+".md"),
		filepath.Join(l.root, "journals", strings.ReplaceAll(page, "-", "_")+".md"),
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// parsePage builds the page metadata from a file: leading "key:: value"
// lines become page properties, tags come from the tags property plus
// inline #tags anywhere in the body.
func parsePage(filename string, journal bool, content string) *models.Page {
	stem := strings.TrimSuffix(filename, ".md")
	name := strings.ReplaceAll(stem, "__", "/")
	day := 0
	if journal {
		name = strings.ReplaceAll(stem, "_", "-")
		if t, err := time.Parse("2006-01-02", name); err == nil {
			day, _ = strconv.Atoi(t.Format("20060102"))
		}
	}

	props := make(map[string]any)
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimPrefix(strings.TrimSpace(line), "- ")
		m := propertyRe.FindStringSubmatch(trimmed)
		if m == nil {
			// Page properties are the leading property block only.
			if strings.TrimSpace(line) != "" {
				break
			}
			continue
		}
		props[m[1]] = parsePropertyValue(m[2])
	}

	var tags []string
	seen := make(map[string]struct{})
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		tags = append(tags, t)
	}
	if raw, ok := props["tags"]; ok {
		switch v := raw.(type) {
		case []string:
			for _, t := range v {
				add(t)
			}
		case string:
			add(v)
		}
	}
	for _, m := range tagRe.FindAllStringSubmatch(content, -1) {
		add(m[1])
	}

	if len(props) == 0 {
		props = nil
	}
	return &models.Page{
		ID:         name,
		Name:       name,
		Journal:    journal,
		JournalDay: day,
		Properties: props,
		Tags:       tags,
	}
}

// parsePropertyValue splits comma-separated values into a list and leaves
// scalars as strings; downstream comparison does the type coercion.
func parsePropertyValue(raw string) any {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, ",") {
		parts := strings.Split(raw, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return raw
}

// parseBlocks turns the page's bullet outline into a block tree, nesting by
// indentation. Non-bullet continuation lines attach to the current block.
func parseBlocks(page, content string) []*models.Block {
	var (
		roots []*models.Block
		stack []*models.Block // stack[i] = open block at depth i
		n     int
	)

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		if !strings.HasPrefix(trimmed, "- ") && trimmed != "-" {
			if len(stack) > 0 && strings.TrimSpace(trimmed) != "" {
				cur := stack[len(stack)-1]
				cur.Content += "\n" + strings.TrimSpace(trimmed)
			}
			continue
		}

		// One tab or two spaces per nesting level.
		depth := indentLevel(line[:len(line)-len(trimmed)])
		if depth > len(stack) {
			depth = len(stack)
		}

		n++
		b := &models.Block{
			ID:      fmt.Sprintf("%s#%d", page, n),
			Content: strings.TrimSpace(strings.TrimPrefix(trimmed, "-")),
			Page:    page,
		}
		if m := propertyRe.FindStringSubmatch(b.Content); m != nil {
			b.Properties = map[string]any{m[1]: parsePropertyValue(m[2])}
		}

		stack = stack[:depth]
		if depth == 0 {
			roots = append(roots, b)
		} else {
			parent := stack[depth-1]
			parent.Children = append(parent.Children, b)
		}
		stack = append(stack, b)
	}
	return roots
}

func indentLevel(prefix string) int {
	level, spaces := 0, 0
	for _, r := range prefix {
		if r == '\t' {
			level++
			spaces = 0
			continue
		}
		spaces++
		if spaces == 2 {
			level++
			spaces = 0
		}
	}
	return level
}
