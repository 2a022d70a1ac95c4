package skills

type trieNode struct {
	children map[string]*trieNode
	id       string
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[string]*trieNode)}
}

// insert registers the phrase for id. It returns the id already bound to the
// phrase, if any.
func (n *trieNode) insert(phrase []string, id string) string {
	node := n
	for _, tok := range phrase {
		next, ok := node.children[tok]
		if !ok {
			next = newTrieNode()
			node.children[tok] = next
		}
		node = next
	}
	if node.id != "" && node.id != id {
		return node.id
	}
	node.id = id
	return ""
}

// longest returns the id and token length of the longest phrase starting at
// tokens[start]. Length is zero when nothing matches.
func (n *trieNode) longest(tokens []string, start int) (string, int) {
	var (
		id     string
		length int
	)
	node := n
	for i := start; i < len(tokens); i++ {
		next, ok := node.children[tokens[i]]
		if !ok {
			break
		}
		node = next
		if node.id != "" {
			id = node.id
			length = i - start + 1
		}
	}
	return id, length
}
