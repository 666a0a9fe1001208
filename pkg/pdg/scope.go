package pdg

import "github.com/l3aro/jspdg/pkg/jsast"

// scopeStack tracks, per lexical function scope, which node last defined
// each name. Blocks share the scope of their enclosing function.
type scopeStack struct {
	frames []map[string]int
}

func (s *scopeStack) push() {
	s.frames = append(s.frames, make(map[string]int))
}

func (s *scopeStack) pop() {
	if len(s.frames) > 0 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

// define records owner as the definer of name in the innermost scope.
func (s *scopeStack) define(name string, owner int) {
	if len(s.frames) == 0 {
		s.push()
	}
	s.frames[len(s.frames)-1][name] = owner
}

// resolve finds the innermost definition of name.
func (s *scopeStack) resolve(name string) (int, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if id, ok := s.frames[i][name]; ok {
			return id, true
		}
	}
	return 0, false
}

// bindingNames flattens a binding or assignment target into the names it
// binds, in source order. Targets that bind nothing, such as member
// expressions, yield no names.
func bindingNames(target jsast.Node, out []string) []string {
	switch p := target.(type) {
	case *jsast.Identifier:
		if p != nil {
			out = append(out, p.Name)
		}
	case *jsast.ArrayPattern:
		for _, el := range p.Elements {
			out = bindingNames(el, out)
		}
	case *jsast.ObjectPattern:
		for _, prop := range p.Properties {
			switch v := prop.(type) {
			case *jsast.Property:
				out = bindingNames(v.Value, out)
			case *jsast.RestElement:
				out = bindingNames(v.Argument, out)
			}
		}
	case *jsast.RestElement:
		out = bindingNames(p.Argument, out)
	case *jsast.AssignmentPattern:
		out = bindingNames(p.Left, out)
	}
	return out
}
