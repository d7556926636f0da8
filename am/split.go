package am

// insertIntoLeaf inserts (key, rid) into the leaf at leafPage, splitting it
// and propagating a separator up path (the internal pages visited during
// descent, root first) when the leaf is full. This is the online-insert
// half of the B+ tree maintenance the bulk-loader in bulkload.go exists to
// avoid paying one page split at a time.
func (ix *Index) insertIntoLeaf(path []int32, leafPage int32, key []byte, rid int32) error {
	leafBuf, err := ix.mgr.GetThisPage(ix.fd, int64(leafPage))
	if err != nil {
		return err
	}

	n := LeafNumKeys(leafBuf)
	max := leafMaxKeys(leafBuf)
	pos := LeafFindInsertPos(leafBuf, key)

	if n < max {
		LeafInsertAt(leafBuf, pos, key, rid)
		return ix.mgr.UnfixPage(ix.fd, int64(leafPage), true)
	}

	type ent struct {
		key []byte
		rid int32
	}
	entries := make([]ent, 0, n+1)
	for i := int16(0); i < n; i++ {
		entries = append(entries, ent{LeafKeyAt(leafBuf, i), LeafRecIDAt(leafBuf, i)})
	}
	entries = append(entries, ent{})
	copy(entries[pos+1:], entries[pos:n])
	entries[pos] = ent{key, rid}

	mid := len(entries) / 2
	left := entries[:mid]
	right := entries[mid:]

	attrLen := ix.attrLen
	oldNext := LeafNextPage(leafBuf)

	InitLeaf(leafBuf, attrLen)
	for i, e := range left {
		LeafInsertAt(leafBuf, int16(i), e.key, e.rid)
	}

	newPageNo, newBuf, err := ix.mgr.AllocPage(ix.fd)
	if err != nil {
		return err
	}
	newLeafPage := int32(newPageNo)
	InitLeaf(newBuf, attrLen)
	for i, e := range right {
		LeafInsertAt(newBuf, int16(i), e.key, e.rid)
	}
	SetLeafNextPage(newBuf, oldNext)
	SetLeafNextPage(leafBuf, newLeafPage)

	if err := ix.mgr.UnfixPage(ix.fd, int64(leafPage), true); err != nil {
		return err
	}
	if err := ix.mgr.UnfixPage(ix.fd, newPageNo, true); err != nil {
		return err
	}

	sepKey := append([]byte(nil), right[0].key...)
	return ix.insertIntoParent(path, leafPage, sepKey, newLeafPage)
}

// insertIntoParent attaches (sepKey, rightChild) to leftChild's parent, the
// last entry of path. leftChild already holds its post-split contents;
// rightChild is the newly allocated sibling. When path is empty, leftChild
// was the root and a new root is created above both halves, growing the
// tree's height by one.
func (ix *Index) insertIntoParent(path []int32, leftChild int32, sepKey []byte, rightChild int32) error {
	if len(path) == 0 {
		newRootNo, newRootBuf, err := ix.mgr.AllocPage(ix.fd)
		if err != nil {
			return err
		}
		InitInternal(newRootBuf, ix.attrLen, leftChild)
		InternalInsertAt(newRootBuf, 1, sepKey, rightChild)
		if err := ix.mgr.UnfixPage(ix.fd, newRootNo, true); err != nil {
			return err
		}
		ix.rootPage = int32(newRootNo)
		ix.height++
		return nil
	}

	parentPage := path[len(path)-1]
	parentBuf, err := ix.mgr.GetThisPage(ix.fd, int64(parentPage))
	if err != nil {
		return err
	}

	n := InternalNumKeys(parentBuf)
	max := internalMaxKeys(parentBuf)
	childPos := InternalFindChildPos(parentBuf, leftChild)
	insertPos := childPos + 1

	if n < max {
		InternalInsertAt(parentBuf, insertPos, sepKey, rightChild)
		return ix.mgr.UnfixPage(ix.fd, int64(parentPage), true)
	}

	// Gather the current n+1 children and n keys plus the new pair into
	// plain slices, in 0-indexed form: allChildren[i] = child_i,
	// allKeys[i] = key_{i+1}. InternalInsertAt's pos is 1-indexed among
	// keys and equals the 0-indexed position of the new child.
	allChildren := make([]int32, n+1)
	for i := int16(0); i <= n; i++ {
		allChildren[i] = InternalChildAt(parentBuf, i)
	}
	allKeys := make([][]byte, n)
	for i := int16(1); i <= n; i++ {
		allKeys[i-1] = InternalKeyAt(parentBuf, i)
	}

	newChildren := make([]int32, 0, n+2)
	newChildren = append(newChildren, allChildren[:insertPos]...)
	newChildren = append(newChildren, rightChild)
	newChildren = append(newChildren, allChildren[insertPos:]...)

	newKeys := make([][]byte, 0, n+1)
	newKeys = append(newKeys, allKeys[:insertPos-1]...)
	newKeys = append(newKeys, sepKey)
	newKeys = append(newKeys, allKeys[insertPos-1:]...)

	leftKeyCount := len(newKeys) / 2
	leftChildren := newChildren[:leftKeyCount+1]
	leftKeys := newKeys[:leftKeyCount]
	promoted := append([]byte(nil), newKeys[leftKeyCount]...)
	rightChildren := newChildren[leftKeyCount+1:]
	rightKeys := newKeys[leftKeyCount+1:]

	rebuildInternal(parentBuf, ix.attrLen, leftChildren, leftKeys)
	if err := ix.mgr.UnfixPage(ix.fd, int64(parentPage), true); err != nil {
		return err
	}

	newPageNo, newBuf, err := ix.mgr.AllocPage(ix.fd)
	if err != nil {
		return err
	}
	rebuildInternal(newBuf, ix.attrLen, rightChildren, rightKeys)
	if err := ix.mgr.UnfixPage(ix.fd, newPageNo, true); err != nil {
		return err
	}

	return ix.insertIntoParent(path[:len(path)-1], parentPage, promoted, int32(newPageNo))
}

// rebuildInternal reformats buf as an internal node holding exactly the
// given children and separator keys (len(children) == len(keys)+1).
func rebuildInternal(buf []byte, attrLen int16, children []int32, keys [][]byte) {
	InitInternal(buf, attrLen, children[0])
	for i, k := range keys {
		InternalInsertAt(buf, int16(i+1), k, children[i+1])
	}
}
