package component

import "sort"

// Tags is an unordered string set. Insertion and removal are idempotent.
type Tags struct {
	set map[string]struct{}
}

var TagsComponent = NewNamedComponent[Tags]("tags")

func NewTags(tags ...string) *Tags {
	t := &Tags{}
	for _, tag := range tags {
		t.Add(tag)
	}
	return t
}

func (t *Tags) Add(tag string) {
	if tag == "" {
		return
	}
	if t.set == nil {
		t.set = map[string]struct{}{}
	}
	t.set[tag] = struct{}{}
}

func (t *Tags) Remove(tag string) {
	delete(t.set, tag)
}

func (t *Tags) Has(tag string) bool {
	if t == nil {
		return false
	}
	_, ok := t.set[tag]
	return ok
}

func (t *Tags) Len() int {
	if t == nil {
		return 0
	}
	return len(t.set)
}

// List returns the tags sorted.
func (t *Tags) List() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.set))
	for tag := range t.set {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
