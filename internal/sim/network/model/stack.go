package model

import "fmt"

// Stack is a counted item value. Stacks are copied by value; a stack handed
// across a boundary never aliases inventory state.
type Stack struct {
	Item  string `json:"item"`
	Meta  int    `json:"meta,omitempty"`
	Tag   string `json:"tag,omitempty"`
	Count int    `json:"count"`
}

// StackKey is the identity of a stack without its count.
type StackKey struct {
	Item string
	Meta int
	Tag  string
}

var Empty = Stack{}

func (s Stack) IsEmpty() bool { return s.Item == "" || s.Count <= 0 }

// WithCount returns s with Count n. A non-positive n yields the empty stack.
func (s Stack) WithCount(n int) Stack {
	if n <= 0 || s.Item == "" {
		return Empty
	}
	s.Count = n
	return s
}

func (s Stack) Copy() Stack {
	if s.IsEmpty() {
		return Empty
	}
	return s
}

func (s Stack) Key() StackKey { return StackKey{Item: s.Item, Meta: s.Meta, Tag: s.Tag} }

func (s Stack) String() string {
	if s.IsEmpty() {
		return "EMPTY"
	}
	if s.Meta != 0 {
		return fmt.Sprintf("%s:%dx%d", s.Item, s.Meta, s.Count)
	}
	return fmt.Sprintf("%sx%d", s.Item, s.Count)
}

// CanStack reports whether a and b may share one slot.
func CanStack(a, b Stack) bool {
	if a.IsEmpty() || b.IsEmpty() {
		return false
	}
	return a.Item == b.Item && a.Meta == b.Meta && a.Tag == b.Tag
}

// MatchPattern compares a filter pattern with a candidate. Metadata is only
// compared when metaSensitive is set.
func MatchPattern(pattern, candidate Stack, metaSensitive bool) bool {
	if pattern.IsEmpty() || candidate.IsEmpty() {
		return false
	}
	if pattern.Item != candidate.Item {
		return false
	}
	if metaSensitive && pattern.Meta != candidate.Meta {
		return false
	}
	return true
}

// Matcher is the caller-supplied predicate used by extract requests.
type Matcher interface {
	Match(Stack) bool
}

type MatcherFunc func(Stack) bool

func (f MatcherFunc) Match(s Stack) bool { return f(s) }

// StackMatcher matches stacks of Pattern's item.
type StackMatcher struct {
	Pattern    Stack
	IgnoreMeta bool
	IgnoreTag  bool
}

func (m StackMatcher) Match(s Stack) bool {
	if s.IsEmpty() || m.Pattern.Item == "" || s.Item != m.Pattern.Item {
		return false
	}
	if !m.IgnoreMeta && s.Meta != m.Pattern.Meta {
		return false
	}
	if !m.IgnoreTag && s.Tag != m.Pattern.Tag {
		return false
	}
	return true
}

// PinnedMatcher accepts exactly the stacks that can stack with template.
func PinnedMatcher(template Stack) Matcher {
	return MatcherFunc(func(s Stack) bool { return CanStack(template, s) })
}
