// Package changes computes file-level change sets between two snapshots.
package changes

import (
	"fmt"
	"sort"

	"github.com/modoturbo/repocompat/internal/domain"
)

// Diff compares two project structures by path. It is a pure function: the
// same inputs always produce the same change set, ordered by path.
func Diff(base, target *domain.ProjectStructure) domain.ChangeSet {
	baseFiles := filesByPath(base)
	targetFiles := filesByPath(target)
	baseUnits := base.UnitsByPath()
	targetUnits := target.UnitsByPath()

	cs := domain.ChangeSet{
		AddedFiles:    []domain.FileChange{},
		ModifiedFiles: []domain.FileChange{},
		DeletedFiles:  []domain.FileChange{},
	}

	for _, path := range unionPaths(baseFiles, targetFiles, baseUnits, targetUnits) {
		bf, inBase := lookup(baseFiles, baseUnits, path)
		tf, inTarget := lookup(targetFiles, targetUnits, path)
		bu, tu := baseUnits[path], targetUnits[path]

		switch {
		case inTarget && !inBase:
			cs.AddedFiles = append(cs.AddedFiles, domain.FileChange{
				Path:       path,
				ChangeType: domain.ChangeAdded,
				FileKind:   fileKind(tf, tu),
				Impact:     domain.ImpactAdditive,
			})
			recordHints(&cs, path, domain.ChangeAdded, nil, &tf)
		case inBase && !inTarget:
			cs.DeletedFiles = append(cs.DeletedFiles, domain.FileChange{
				Path:       path,
				ChangeType: domain.ChangeDeleted,
				FileKind:   fileKind(bf, bu),
				Impact:     domain.ImpactBreaking,
			})
			recordHints(&cs, path, domain.ChangeDeleted, &bf, nil)
		default:
			if fingerprintOf(bf, bu) == fingerprintOf(tf, tu) {
				continue
			}
			impact, details := modifiedImpact(bf, tf, bu, tu)
			cs.ModifiedFiles = append(cs.ModifiedFiles, domain.FileChange{
				Path:       path,
				ChangeType: domain.ChangeModified,
				FileKind:   fileKind(tf, tu),
				Impact:     impact,
				Details:    details,
			})
			recordHints(&cs, path, domain.ChangeModified, &bf, &tf)
		}
	}
	return cs
}

func modifiedImpact(bf, tf domain.FileEntry, bu, tu *domain.SourceUnit) (domain.Impact, []string) {
	if bu != nil && tu != nil {
		s := CompareSurface(bu, tu)
		return s.Impact(), s.Details
	}
	if tf.Kind == domain.FileConfig {
		cc := configChange(tf.Path, domain.ChangeModified, bf.ConfigKeys, tf.ConfigKeys)
		var details []string
		for _, k := range cc.RemovedKeys {
			details = append(details, fmt.Sprintf("config key %q removed", k))
		}
		for _, k := range cc.AddedKeys {
			details = append(details, fmt.Sprintf("config key %q added", k))
		}
		return cc.Impact, details
	}
	if (bu == nil) != (tu == nil) {
		return domain.ImpactNeutral, []string{"structure unavailable on one side"}
	}
	return domain.ImpactNeutral, nil
}

func recordHints(cs *domain.ChangeSet, path string, ct domain.ChangeType, bf, tf *domain.FileEntry) {
	kind := domain.FileKind("")
	if tf != nil {
		kind = tf.Kind
	} else if bf != nil {
		kind = bf.Kind
	}
	switch kind {
	case domain.FileManifest:
		cs.DependencyChangeHints = append(cs.DependencyChangeHints, path)
	case domain.FileConfig:
		var oldKeys, newKeys []string
		if bf != nil {
			oldKeys = bf.ConfigKeys
		}
		if tf != nil {
			newKeys = tf.ConfigKeys
		}
		cs.ConfigChangeHints = append(cs.ConfigChangeHints, configChange(path, ct, oldKeys, newKeys))
	}
}

func configChange(path string, ct domain.ChangeType, oldKeys, newKeys []string) domain.ConfigChange {
	added, removed := diffStrings(oldKeys, newKeys)
	cc := domain.ConfigChange{Path: path, ChangeType: ct, AddedKeys: added, RemovedKeys: removed}
	switch {
	case ct == domain.ChangeDeleted:
		cc.Impact = domain.ImpactBreaking
	case ct == domain.ChangeAdded:
		cc.Impact = domain.ImpactAdditive
	case len(removed) > 0:
		cc.Impact = domain.ImpactBreaking
	case len(added) > 0:
		cc.Impact = domain.ImpactAdditive
	default:
		cc.Impact = domain.ImpactNeutral
	}
	return cc
}

func fileKind(f domain.FileEntry, u *domain.SourceUnit) string {
	if u != nil {
		return string(u.Kind)
	}
	return string(f.Kind)
}

func fingerprintOf(f domain.FileEntry, u *domain.SourceUnit) string {
	if u != nil {
		return Fingerprint(u)
	}
	return f.Hash
}

func lookup(files map[string]domain.FileEntry, units map[string]*domain.SourceUnit, path string) (domain.FileEntry, bool) {
	if f, ok := files[path]; ok {
		return f, true
	}
	if u, ok := units[path]; ok {
		return domain.FileEntry{Path: path, Kind: domain.FileSource, Hash: Fingerprint(u)}, true
	}
	return domain.FileEntry{}, false
}

func filesByPath(p *domain.ProjectStructure) map[string]domain.FileEntry {
	out := make(map[string]domain.FileEntry)
	if p == nil {
		return out
	}
	for _, f := range p.Files {
		out[f.Path] = f
	}
	return out
}

func unionPaths(a, b map[string]domain.FileEntry, ua, ub map[string]*domain.SourceUnit) []string {
	seen := make(map[string]bool)
	for p := range a {
		seen[p] = true
	}
	for p := range b {
		seen[p] = true
	}
	for p := range ua {
		seen[p] = true
	}
	for p := range ub {
		seen[p] = true
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// diffStrings returns the values only in next and the values only in prev,
// both sorted.
func diffStrings(prev, next []string) (added, removed []string) {
	inPrev := make(map[string]bool, len(prev))
	for _, s := range prev {
		inPrev[s] = true
	}
	inNext := make(map[string]bool, len(next))
	for _, s := range next {
		inNext[s] = true
		if !inPrev[s] {
			added = append(added, s)
		}
	}
	for _, s := range prev {
		if !inNext[s] {
			removed = append(removed, s)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}
