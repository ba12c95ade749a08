package payload

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Item is one payload file observed in a queue directory.
type Item struct {
	Name string
	Path string
}

// Snapshot is a read-only, filename-ordered view of a queue directory. The
// timestamp prefix makes filename order chronological for well-formed names.
type Snapshot struct {
	items  []Item
	parser *Parser
}

// TakeSnapshot lists the regular files in dir sorted by name. Dotfiles are
// skipped so stamp or editor artifacts never enter the queue view.
func TakeSnapshot(dir string, parser *Parser) (Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Snapshot{parser: parser}, err
	}

	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		items = append(items, Item{Name: name, Path: filepath.Join(dir, name)})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })

	return Snapshot{items: items, parser: parser}, nil
}

// Items returns the snapshot contents in filename order.
func (s Snapshot) Items() []Item {
	return s.items
}

// Count returns the number of queued payloads.
func (s Snapshot) Count() int {
	return len(s.items)
}

// Empty reports whether the snapshot observed no payloads.
func (s Snapshot) Empty() bool {
	return len(s.items) == 0
}

// OperationCodes returns the operation code of each queued payload in order.
func (s Snapshot) OperationCodes() []string {
	codes := make([]string, 0, len(s.items))
	for _, item := range s.items {
		codes = append(codes, s.operationCode(item.Name))
	}
	return codes
}

// NextOperation returns the operation code of the first queued payload, or an
// empty string when the queue is empty.
func (s Snapshot) NextOperation() string {
	if len(s.items) == 0 {
		return ""
	}
	return s.operationCode(s.items[0].Name)
}

func (s Snapshot) operationCode(name string) string {
	if s.parser == nil {
		return UnknownOperation
	}
	return s.parser.OperationCode(name)
}
