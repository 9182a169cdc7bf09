package dom

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	ErrAlreadyMounted = errors.New("host already mounted")
	ErrNotMounted     = errors.New("host not mounted")
	ErrNotFound       = errors.New("element not found")
	ErrDuplicateRef   = errors.New("duplicate element ref")
)

// Document is a headless host document. Mounted trees live under
// <div id=host> elements inside <body>.
type Document struct {
	mu     sync.Mutex
	root   *html.Node
	body   *html.Node
	mounts map[string]*mount
	refs   map[string]*boundElement
}

type mount struct {
	host   *html.Node
	refs   []string
	unsubs []func()
}

type boundElement struct {
	el   *Element
	node *html.Node
}

func NewDocument() *Document {
	root := &html.Node{Type: html.DocumentNode}
	root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	htmlNode := newElementNode("html")
	head := newElementNode("head")
	body := newElementNode("body")
	htmlNode.AppendChild(head)
	htmlNode.AppendChild(body)
	root.AppendChild(htmlNode)

	return &Document{
		root:   root,
		body:   body,
		mounts: make(map[string]*mount),
		refs:   make(map[string]*boundElement),
	}
}

// Mount attaches el under a new <div id=hostID> in the body and starts
// following its dynamic text.
func (d *Document) Mount(hostID string, el *Element) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.mounts[hostID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyMounted, hostID)
	}

	m := &mount{host: newElementNode("div")}
	m.host.Attr = []html.Attribute{{Key: "id", Val: hostID}}

	node, err := d.build(m, el)
	if err != nil {
		d.release(m)
		return err
	}
	m.host.AppendChild(node)
	d.body.AppendChild(m.host)
	d.mounts[hostID] = m
	return nil
}

// Unmount removes the tree mounted at hostID and stops following its sources
func (d *Document) Unmount(hostID string) error {
	d.mu.Lock()
	m, ok := d.mounts[hostID]
	if !ok {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotMounted, hostID)
	}
	delete(d.mounts, hostID)
	d.body.RemoveChild(m.host)
	for _, ref := range m.refs {
		delete(d.refs, ref)
	}
	d.mu.Unlock()

	// unsubscribing takes the source's lock; keep it outside ours
	for _, unsub := range m.unsubs {
		unsub()
	}
	return nil
}

// Click simulates a user click on the element named ref. Elements without a
// click binding ignore it.
func (d *Document) Click(ref string) error {
	d.mu.Lock()
	b, ok := d.refs[ref]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, ref)
	}

	if b.el.onClick != nil {
		b.el.onClick()
	}
	return nil
}

// TextOf returns the text content of the element named ref
func (d *Document) TextOf(ref string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.refs[ref]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
	}

	var sb strings.Builder
	collectText(&sb, b.node)
	return sb.String(), nil
}

// Render writes the whole document as HTML
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

// must hold d.mu
func (d *Document) build(m *mount, el *Element) (*html.Node, error) {
	node := newElementNode(el.tag)
	node.Attr = append(node.Attr, el.attrs...)
	if len(el.classes) > 0 {
		node.Attr = append(node.Attr, html.Attribute{Key: "class", Val: strings.Join(el.classes, " ")})
	}

	if el.ref != "" {
		if _, ok := d.refs[el.ref]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRef, el.ref)
		}
		d.refs[el.ref] = &boundElement{el: el, node: node}
		m.refs = append(m.refs, el.ref)
	}

	switch {
	case el.dyn != nil:
		textNode := &html.Node{Type: html.TextNode, Data: el.dyn.text()}
		node.AppendChild(textNode)
		dyn := el.dyn
		m.unsubs = append(m.unsubs, dyn.source.Subscribe(func() {
			text := dyn.text()
			d.mu.Lock()
			textNode.Data = text
			d.mu.Unlock()
		}))
	case el.text != "":
		node.AppendChild(&html.Node{Type: html.TextNode, Data: el.text})
	}

	for _, child := range el.children {
		childNode, err := d.build(m, child)
		if err != nil {
			return nil, err
		}
		node.AppendChild(childNode)
	}
	return node, nil
}

// release undoes a partially built mount. must hold d.mu
func (d *Document) release(m *mount) {
	for _, ref := range m.refs {
		delete(d.refs, ref)
	}
	for _, unsub := range m.unsubs {
		unsub()
	}
}

func newElementNode(tag string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
}

func collectText(sb *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(sb, c)
	}
}
