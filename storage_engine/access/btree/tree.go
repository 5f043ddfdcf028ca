package btree

import (
	"reflect"

	"github.com/pkg/errors"

	"PagedDB/storage_engine/bufferpool"
	"PagedDB/types"
)

// New creates an empty tree on the given pool: a single leaf root. The
// value type must be fixed-size and pointer-free, since values live as raw
// bytes inside pages.
func New[K Key, V any](pool *bufferpool.BufferPool) (*BTree[K, V], error) {
	if err := checkValueType[V](); err != nil {
		return nil, err
	}

	t := &BTree[K, V]{pool: pool}
	root, err := t.createNode(NodeLeaf)
	if err != nil {
		return nil, err
	}
	if err := t.unloadNode(root); err != nil {
		return nil, err
	}
	t.root = root.id()
	return t, nil
}

// Load attaches to an existing tree by its root extent id, validating the
// root page against the instantiated types.
func Load[K Key, V any](pool *bufferpool.BufferPool, root types.ExtentID) (*BTree[K, V], error) {
	if err := checkValueType[V](); err != nil {
		return nil, err
	}

	t := &BTree[K, V]{pool: pool, root: root}
	node, err := t.loadNode(root)
	if err != nil {
		return nil, err
	}
	if err := t.unloadNode(node); err != nil {
		return nil, err
	}
	return t, nil
}

// Root returns the extent id of the current root node. It changes when
// inserts grow the tree or removes shrink it; persist it externally to
// Load the tree later.
func (t *BTree[K, V]) Root() types.ExtentID {
	return t.root
}

// Destroy releases every node of the tree back to the pool. The handle is
// unusable afterwards.
func (t *BTree[K, V]) Destroy() error {
	if t.root == types.InvalidExtentID {
		return nil
	}
	if err := t.destroySubtree(t.root); err != nil {
		return err
	}
	t.root = types.InvalidExtentID
	return nil
}

func (t *BTree[K, V]) destroySubtree(extent types.ExtentID) error {
	node, err := t.loadNode(extent)
	if err != nil {
		return err
	}

	if node.pg.typ() == NodeInternal {
		num := node.pg.numElements()
		for i := int32(0); i <= num; i++ {
			child := node.pg.childAt(i)
			if child == types.InvalidExtentID {
				continue
			}
			if err := t.destroySubtree(child); err != nil {
				_ = t.unloadNode(node)
				return err
			}
		}
	}
	return t.destroyNode(node)
}

// checkValueType rejects value types that cannot be overlaid on page bytes.
func checkValueType[V any]() error {
	var v V
	typ := reflect.TypeOf(v)
	if typ == nil {
		return errors.Errorf("btree: interface value types are not supported")
	}
	if containsPointers(typ) {
		return errors.Errorf("btree: value type %s contains pointers and cannot live in a page", typ)
	}
	return nil
}

func containsPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return containsPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if containsPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
