// Package merkle maintains a content-addressed integrity index over captured
// events and issues inclusion proofs against its root.
//
// Leaf hashes are produced by folding the event payload into a fixed 32-byte
// accumulator; internal nodes combine children by XOR. The tree is rebuilt
// from the sorted leaf set on every insert, which keeps the root independent
// of insertion order.
package merkle

import (
	"fmt"
	"sort"
)

// HashSize is the width of every node hash in bytes.
const HashSize = 32

// Hash is a fixed-width node digest.
type Hash = [HashSize]byte

// ZeroHash pads incomplete tree levels.
var ZeroHash = Hash{}

// DefaultDepth is the nominal tree depth reported for a fresh index. The
// depth is informational; the tree grows to fit its leaf set.
const DefaultDepth = 20

// FoldBytes folds an arbitrary payload into a Hash by XOR-ing each byte into
// position i mod HashSize.
func FoldBytes(data []byte) Hash {
	var h Hash
	for i, b := range data {
		h[i%HashSize] ^= b
	}
	return h
}

func combine(left, right Hash) Hash {
	var h Hash
	for i := 0; i < HashSize; i++ {
		h[i] = left[i] ^ right[i]
	}
	return h
}

// ProofStep is one level of an inclusion proof path, bottom-up.
type ProofStep struct {
	Sibling Hash `json:"sibling"`
	// IsLeft marks the sibling as the left operand when recombining.
	IsLeft bool `json:"is_left"`
}

// Proof is an inclusion proof for a single leaf against a specific root.
type Proof struct {
	EventID  uint64      `json:"event_id"`
	LeafHash Hash        `json:"leaf_hash"`
	Path     []ProofStep `json:"path"`
}

// VerifyProof recombines the proof path from the leaf hash and reports
// whether it reproduces root.
func VerifyProof(p *Proof, root Hash) bool {
	current := p.LeafHash
	for _, step := range p.Path {
		if step.IsLeft {
			current = combine(step.Sibling, current)
		} else {
			current = combine(current, step.Sibling)
		}
	}
	return current == root
}

// Index is a Merkle tree over event leaves keyed by event id. It is not safe
// for concurrent use; callers serialize access.
type Index struct {
	depth  int
	leaves map[uint64]Hash

	// tree is the flattened heap layout from the last recompute: tree[1] is
	// the root, children of i are 2i and 2i+1. Rebuilt on every mutation.
	tree []Hash
	// order maps leaf position (sorted by id) back to event id.
	order []uint64
}

// New returns an empty index with a nominal depth.
func New(depth int) *Index {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Index{
		depth:  depth,
		leaves: make(map[uint64]Hash),
	}
}

// Len reports the number of leaves currently indexed.
func (x *Index) Len() int {
	return len(x.leaves)
}

// Insert adds or replaces the leaf for id and recomputes the tree. Insertion
// never fails; the tree widens past the nominal depth when needed.
func (x *Index) Insert(id uint64, leaf Hash) {
	x.leaves[id] = leaf
	x.recompute()
}

// Root returns the current root. The second return is false while the index
// is empty.
func (x *Index) Root() (Hash, bool) {
	if len(x.leaves) == 0 {
		return ZeroHash, false
	}
	return x.tree[1], true
}

// Reset drops every leaf.
func (x *Index) Reset() {
	x.leaves = make(map[uint64]Hash)
	x.tree = nil
	x.order = nil
}

// Leaf returns the stored hash for id.
func (x *Index) Leaf(id uint64) (Hash, bool) {
	h, ok := x.leaves[id]
	return h, ok
}

// recompute rebuilds the flattened tree from the leaf set. Leaves are laid
// out in ascending id order and padded with ZeroHash to the next power of
// two.
func (x *Index) recompute() {
	x.order = x.order[:0]
	for id := range x.leaves {
		x.order = append(x.order, id)
	}
	sort.Slice(x.order, func(i, j int) bool { return x.order[i] < x.order[j] })

	width := 1
	for width < len(x.order) {
		width *= 2
	}

	x.tree = make([]Hash, 2*width)
	for i, id := range x.order {
		x.tree[width+i] = x.leaves[id]
	}
	for i := width - 1; i >= 1; i-- {
		x.tree[i] = combine(x.tree[2*i], x.tree[2*i+1])
	}
}

// GenerateProof builds an inclusion proof for id against the current root.
func (x *Index) GenerateProof(id uint64) (*Proof, error) {
	leaf, ok := x.leaves[id]
	if !ok {
		return nil, fmt.Errorf("no leaf for event %d", id)
	}

	pos := sort.Search(len(x.order), func(i int) bool { return x.order[i] >= id })
	width := len(x.tree) / 2

	proof := &Proof{EventID: id, LeafHash: leaf}
	idx := width + pos
	for idx > 1 {
		var step ProofStep
		if idx%2 == 1 {
			step = ProofStep{Sibling: x.tree[idx-1], IsLeft: true}
		} else {
			step = ProofStep{Sibling: x.tree[idx+1], IsLeft: false}
		}
		proof.Path = append(proof.Path, step)
		idx /= 2
	}
	return proof, nil
}

// BatchProof bundles individual inclusion proofs against the root they were
// generated from. EventCount is the number of ids requested, which may exceed
// len(Proofs) when some ids had no leaf.
type BatchProof struct {
	BatchRoot  Hash     `json:"batch_root"`
	Proofs     []*Proof `json:"proofs"`
	BatchID    uint64   `json:"batch_id"`
	EventCount int      `json:"event_count"`
}

// GenerateBatchProof builds one proof per resolvable id, skipping ids without
// a leaf. It fails only when the tree is empty or no id resolves.
func (x *Index) GenerateBatchProof(ids []uint64, batchID uint64) (*BatchProof, error) {
	root, ok := x.Root()
	if !ok {
		return nil, fmt.Errorf("merkle index is empty")
	}

	proofs := make([]*Proof, 0, len(ids))
	for _, id := range ids {
		p, err := x.GenerateProof(id)
		if err != nil {
			continue
		}
		proofs = append(proofs, p)
	}
	if len(proofs) == 0 {
		return nil, fmt.Errorf("no proofs for batch %d: none of %d ids resolve", batchID, len(ids))
	}

	return &BatchProof{
		BatchRoot:  root,
		Proofs:     proofs,
		BatchID:    batchID,
		EventCount: len(ids),
	}, nil
}
