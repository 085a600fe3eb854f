package changes

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/modoturbo/repocompat/internal/domain"
)

// Fingerprint hashes the public surface of a unit: kind, exports, props,
// method and function signatures. Implementation-only edits keep the same
// fingerprint.
func Fingerprint(u *domain.SourceUnit) string {
	h := sha256.New()
	write := func(parts ...string) {
		h.Write([]byte(strings.Join(parts, "\x1f")))
		h.Write([]byte{'\n'})
	}

	write("kind", string(u.Kind))
	exports := append([]string(nil), u.Exports...)
	sort.Strings(exports)
	write(append([]string{"exports"}, exports...)...)

	for _, sig := range signatures(u) {
		write("sig", sig.key(), sig.returns, membersKey(sig.members), fmt.Sprint(sig.public))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Surface is the outcome of comparing two units' public surfaces.
type Surface struct {
	Breaking bool
	Additive bool
	Details  []string
}

// Impact folds the surface comparison into a single impact grade.
func (s Surface) Impact() domain.Impact {
	switch {
	case s.Breaking:
		return domain.ImpactBreaking
	case s.Additive:
		return domain.ImpactAdditive
	default:
		return domain.ImpactNeutral
	}
}

func (s *Surface) breaking(format string, args ...any) {
	s.Breaking = true
	s.Details = append(s.Details, fmt.Sprintf(format, args...))
}

func (s *Surface) additive(format string, args ...any) {
	s.Additive = true
	s.Details = append(s.Details, fmt.Sprintf(format, args...))
}

func (s *Surface) neutral(format string, args ...any) {
	s.Details = append(s.Details, fmt.Sprintf(format, args...))
}

// CompareSurface grades the change between two versions of a unit. Removing
// an export, a required member or a signature, changing a member's type and
// introducing a new required member are breaking; new optional members and
// new exports are additive.
func CompareSurface(base, target *domain.SourceUnit) Surface {
	var s Surface

	if base.Kind != target.Kind {
		s.neutral("kind changed from %s to %s", base.Kind, target.Kind)
	}

	added, removed := diffStrings(base.Exports, target.Exports)
	for _, e := range removed {
		s.breaking("export %q removed", e)
	}
	for _, e := range added {
		s.additive("export %q added", e)
	}

	baseSigs := indexSignatures(signatures(base))
	targetSigs := indexSignatures(signatures(target))
	for _, key := range sortedSigKeys(baseSigs) {
		old := baseSigs[key]
		cur, ok := targetSigs[key]
		if !ok {
			if old.public {
				s.breaking("%s removed", old.label())
			} else {
				s.neutral("%s removed", old.label())
			}
			continue
		}
		if old.public && !cur.public {
			s.breaking("%s is no longer public", old.label())
		}
		if old.returns != cur.returns && old.returns != "" {
			s.breaking("%s return type changed from %s to %s", old.label(), old.returns, orUnknown(cur.returns))
		}
		compareMembers(&s, old.label(), old.members, cur.members)
	}
	for _, key := range sortedSigKeys(targetSigs) {
		if _, ok := baseSigs[key]; !ok {
			s.additive("%s added", targetSigs[key].label())
		}
	}
	return s
}

func compareMembers(s *Surface, owner string, prev, next []domain.Member) {
	nextByName := make(map[string]domain.Member, len(next))
	for _, m := range next {
		nextByName[m.Name] = m
	}
	prevByName := make(map[string]domain.Member, len(prev))
	for _, m := range prev {
		prevByName[m.Name] = m
		cur, ok := nextByName[m.Name]
		switch {
		case !ok && m.Required:
			s.breaking("%s: required %q removed", owner, m.Name)
		case !ok:
			s.neutral("%s: optional %q removed", owner, m.Name)
		case m.Type != cur.Type:
			s.breaking("%s: %q type changed from %s to %s", owner, m.Name, orUnknown(m.Type), orUnknown(cur.Type))
		case !m.Required && cur.Required:
			s.breaking("%s: %q became required", owner, m.Name)
		case m.Required && !cur.Required:
			s.neutral("%s: %q became optional", owner, m.Name)
		}
	}
	for _, m := range next {
		if _, ok := prevByName[m.Name]; ok {
			continue
		}
		if m.Required {
			s.breaking("%s: new required %q", owner, m.Name)
		} else {
			s.additive("%s: new optional %q", owner, m.Name)
		}
	}
}

type signature struct {
	kind    string
	name    string
	returns string
	members []domain.Member
	public  bool
}

func (s signature) key() string { return s.kind + ":" + s.name }
func (s signature) label() string {
	if s.name == "" {
		return s.kind
	}
	return s.kind + " " + s.name
}

// signatures lists the callable surface of a unit: component props, service
// methods and utility functions.
func signatures(u *domain.SourceUnit) []signature {
	var out []signature
	if u.Component != nil {
		out = append(out, signature{kind: "props", members: u.Component.Props, public: true})
	}
	if u.Service != nil {
		for _, m := range u.Service.Methods {
			out = append(out, signature{
				kind:    "method",
				name:    m.Name,
				returns: m.ReturnType,
				members: m.Parameters,
				public:  m.Visibility == "" || m.Visibility == "public",
			})
		}
	}
	if u.Utility != nil {
		for _, f := range u.Utility.Functions {
			out = append(out, signature{
				kind:    "function",
				name:    f.Name,
				returns: f.ReturnType,
				members: f.Parameters,
				public:  f.Exported,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].key() < out[j].key() })
	return out
}

func indexSignatures(sigs []signature) map[string]signature {
	m := make(map[string]signature, len(sigs))
	for _, s := range sigs {
		m[s.key()] = s
	}
	return m
}

func sortedSigKeys(m map[string]signature) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func membersKey(members []domain.Member) string {
	parts := make([]string, 0, len(members))
	for _, m := range members {
		req := "?"
		if m.Required {
			req = "!"
		}
		parts = append(parts, m.Name+req+m.Type)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func orUnknown(t string) string {
	if t == "" {
		return "unknown"
	}
	return t
}
