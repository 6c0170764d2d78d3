package phplsp

import (
	"hash/fnv"
	"sort"
	"strings"
	"sync"
)

const shardCount = 32

// fqnShard is one lock-guarded bucket of the FQN-keyed type map. Sharding
// by FQN hash lets unrelated classes update concurrently without
// contending on a single mutex, per spec §5's concurrency model — the
// teacher guards its whole bbolt handle with one mutex; spec §5 explicitly
// asks for more than that, so this is a redesign rather than a straight
// port (see DESIGN.md C7 entry).
type fqnShard struct {
	mu    sync.RWMutex
	types map[string]*SymbolInfo
}

// WorkspaceIndex is the in-memory, process-lifetime symbol table built
// from every file's FileSymbols digest plus loaded stubs (spec §4.4).
// Nothing here is persisted to disk (spec §6: "no persisted state").
type WorkspaceIndex struct {
	typeShards [shardCount]*fqnShard
	functions  sync.Map // FQN string -> *SymbolInfo
	constants  sync.Map // FQN string -> *SymbolInfo
	members    sync.Map // ownerFQN string -> *memberSet
	fileIndex  sync.Map // URI string -> *FileSymbols
}

type memberSet struct {
	mu      sync.RWMutex
	byName  map[string][]*SymbolInfo // member short name -> symbols (overloaded across kinds e.g. prop+const never collide by name in PHP)
}

// NewWorkspaceIndex allocates an empty index ready for UpdateFile calls.
func NewWorkspaceIndex() *WorkspaceIndex {
	idx := &WorkspaceIndex{}
	for i := range idx.typeShards {
		idx.typeShards[i] = &fqnShard{types: make(map[string]*SymbolInfo)}
	}
	return idx
}

func (idx *WorkspaceIndex) shard(fqn string) *fqnShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fqn))
	return idx.typeShards[h.Sum32()%shardCount]
}

// UpdateFile replaces the whole digest for uri, per spec §4.4's update_file:
// old entries for this URI are removed before the new digest's symbols are
// published, so a file that lost a class no longer advertises it.
func (idx *WorkspaceIndex) UpdateFile(uri string, fs *FileSymbols) {
	idx.RemoveFile(uri)
	idx.fileIndex.Store(uri, fs)

	for i := range fs.Symbols {
		sym := &fs.Symbols[i]
		switch {
		case sym.Kind.IsTypeKind():
			s := idx.shard(sym.FQN)
			s.mu.Lock()
			s.types[sym.FQN] = sym
			s.mu.Unlock()
		case sym.Kind == KindFunction:
			idx.functions.Store(sym.FQN, sym)
		case sym.Kind == KindGlobalConstant:
			idx.constants.Store(sym.FQN, sym)
		case sym.Kind.IsMemberKind():
			idx.addMember(sym)
		}
	}
}

func (idx *WorkspaceIndex) addMember(sym *SymbolInfo) {
	v, _ := idx.members.LoadOrStore(sym.ParentFQN, &memberSet{byName: make(map[string][]*SymbolInfo)})
	set := v.(*memberSet)
	set.mu.Lock()
	defer set.mu.Unlock()
	set.byName[sym.Name] = append(set.byName[sym.Name], sym)
}

// RemoveFile drops every symbol previously published for uri, per spec
// §4.4's remove_file contract (used for file deletion and as UpdateFile's
// first step).
func (idx *WorkspaceIndex) RemoveFile(uri string) {
	v, ok := idx.fileIndex.Load(uri)
	if !ok {
		return
	}
	fs := v.(*FileSymbols)
	for i := range fs.Symbols {
		sym := &fs.Symbols[i]
		switch {
		case sym.Kind.IsTypeKind():
			s := idx.shard(sym.FQN)
			s.mu.Lock()
			delete(s.types, sym.FQN)
			s.mu.Unlock()
		case sym.Kind == KindFunction:
			idx.functions.Delete(sym.FQN)
		case sym.Kind == KindGlobalConstant:
			idx.constants.Delete(sym.FQN)
		case sym.Kind.IsMemberKind():
			idx.removeMember(sym)
		}
	}
	idx.fileIndex.Delete(uri)
}

func (idx *WorkspaceIndex) removeMember(sym *SymbolInfo) {
	v, ok := idx.members.Load(sym.ParentFQN)
	if !ok {
		return
	}
	set := v.(*memberSet)
	set.mu.Lock()
	defer set.mu.Unlock()
	list := set.byName[sym.Name]
	kept := list[:0]
	for _, s := range list {
		if s.URI != sym.URI {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		delete(set.byName, sym.Name)
	} else {
		set.byName[sym.Name] = kept
	}
}

// ResolveFQN implements spec §4.4's resolve_fqn: the type symbol for fqn,
// or nil if unknown.
func (idx *WorkspaceIndex) ResolveFQN(fqn string) *SymbolInfo {
	s := idx.shard(fqn)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.types[fqn]
}

// ResolveFunction looks up a top-level function by FQN.
func (idx *WorkspaceIndex) ResolveFunction(fqn string) *SymbolInfo {
	if v, ok := idx.functions.Load(fqn); ok {
		return v.(*SymbolInfo)
	}
	return nil
}

// ResolveConstant looks up a global constant by FQN.
func (idx *WorkspaceIndex) ResolveConstant(fqn string) *SymbolInfo {
	if v, ok := idx.constants.Load(fqn); ok {
		return v.(*SymbolInfo)
	}
	return nil
}

// ResolveMember implements spec §4.4's resolve_member: walk ownerFQN's
// `extends`/`implements` chain (classes first, then interfaces for
// constants-via-interface) looking for name, with a visited-set cycle
// guard so a malformed `class A extends B` / `class B extends A` pair
// cannot loop (spec §8 "member resolution never loops" — the teacher's
// own recursive GetProperty/GetMethod in internal/php/class.go has no such
// guard, so this is a deliberate hardening, not a straight port).
func (idx *WorkspaceIndex) ResolveMember(ownerFQN, name string) *SymbolInfo {
	visited := make(map[string]bool)
	return idx.resolveMemberVisited(ownerFQN, name, visited)
}

func (idx *WorkspaceIndex) resolveMemberVisited(ownerFQN, name string, visited map[string]bool) *SymbolInfo {
	if ownerFQN == "" || visited[ownerFQN] {
		return nil
	}
	visited[ownerFQN] = true

	if v, ok := idx.members.Load(ownerFQN); ok {
		set := v.(*memberSet)
		set.mu.RLock()
		list := set.byName[name]
		set.mu.RUnlock()
		if len(list) > 0 {
			return list[0]
		}
	}

	owner := idx.ResolveFQN(ownerFQN)
	if owner == nil {
		return nil
	}
	for _, parentFQN := range owner.Extends {
		if sym := idx.resolveMemberVisited(parentFQN, name, visited); sym != nil {
			return sym
		}
	}
	for _, ifaceFQN := range owner.Implements {
		if sym := idx.resolveMemberVisited(ifaceFQN, name, visited); sym != nil {
			return sym
		}
	}
	return nil
}

// GetMembers implements spec §4.4's get_members: every member directly
// declared on ownerFQN (not inherited), for document/workspace symbol
// enumeration and completion.
func (idx *WorkspaceIndex) GetMembers(ownerFQN string) []*SymbolInfo {
	v, ok := idx.members.Load(ownerFQN)
	if !ok {
		return nil
	}
	set := v.(*memberSet)
	set.mu.RLock()
	defer set.mu.RUnlock()
	var out []*SymbolInfo
	for _, list := range set.byName {
		out = append(out, list...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetAllMembersIncludingInherited walks the same extends/implements chain
// as ResolveMember but collects every reachable member instead of
// stopping at the first name match, for completion's member-list context
// (spec §4.7).
func (idx *WorkspaceIndex) GetAllMembersIncludingInherited(ownerFQN string) []*SymbolInfo {
	visited := make(map[string]bool)
	seenNames := make(map[string]bool)
	var out []*SymbolInfo
	var walk func(fqn string)
	walk = func(fqn string) {
		if fqn == "" || visited[fqn] {
			return
		}
		visited[fqn] = true
		for _, m := range idx.GetMembers(fqn) {
			if seenNames[m.Name] {
				continue
			}
			seenNames[m.Name] = true
			out = append(out, m)
		}
		if owner := idx.ResolveFQN(fqn); owner != nil {
			for _, p := range owner.Extends {
				walk(p)
			}
			for _, p := range owner.Implements {
				walk(p)
			}
		}
	}
	walk(ownerFQN)
	return out
}

// Search implements spec §4.4's search: case-insensitive substring match
// over type, function and constant names, for workspace/symbol requests.
func (idx *WorkspaceIndex) Search(query string) []*SymbolInfo {
	query = strings.ToLower(query)
	var out []*SymbolInfo
	for _, s := range idx.typeShards {
		s.mu.RLock()
		for _, sym := range s.types {
			if query == "" || strings.Contains(strings.ToLower(sym.Name), query) {
				out = append(out, sym)
			}
		}
		s.mu.RUnlock()
	}
	idx.functions.Range(func(_, v any) bool {
		sym := v.(*SymbolInfo)
		if query == "" || strings.Contains(strings.ToLower(sym.Name), query) {
			out = append(out, sym)
		}
		return true
	})
	idx.constants.Range(func(_, v any) bool {
		sym := v.(*SymbolInfo)
		if query == "" || strings.Contains(strings.ToLower(sym.Name), query) {
			out = append(out, sym)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FileDigest returns the currently published digest for uri, or nil.
func (idx *WorkspaceIndex) FileDigest(uri string) *FileSymbols {
	if v, ok := idx.fileIndex.Load(uri); ok {
		return v.(*FileSymbols)
	}
	return nil
}

// AllFileURIs returns every URI with a currently published digest, for
// whole-workspace reference finding (C6) and diagnostics re-runs.
func (idx *WorkspaceIndex) AllFileURIs() []string {
	var uris []string
	idx.fileIndex.Range(func(k, _ any) bool {
		uris = append(uris, k.(string))
		return true
	})
	sort.Strings(uris)
	return uris
}
