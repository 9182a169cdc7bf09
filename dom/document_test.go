package dom

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanerius/eventhandler/signal"
)

func TestRenderStaticTree(t *testing.T) {
	doc := NewDocument()
	tree := Div().Class("box").Class("wide").Child(
		Span().Text("hello & bye"),
		Button().Attr("type", "button").Text("go"),
	)
	require.NoError(t, doc.Mount("app", tree))

	var buf bytes.Buffer
	require.NoError(t, doc.Render(&buf))
	assert.Equal(t,
		`<!DOCTYPE html><html><head></head><body><div id="app"><div class="box wide"><span>hello &amp; bye</span><button type="button">go</button></div></div></body></html>`,
		buf.String())
}

func TestClickAndDynamicText(t *testing.T) {
	count := signal.New(0)
	doc := NewDocument()
	tree := Div().Child(
		Div().Ref("value").DynText(count, func() string { return strconv.Itoa(count.Get()) }),
		Button().Ref("inc").Text("+").OnClick(func() {
			count.Replace(func(v int) int { return v + 1 })
		}),
	)
	require.NoError(t, doc.Mount("app", tree))

	text, err := doc.TextOf("value")
	require.NoError(t, err)
	assert.Equal(t, "0", text)

	require.NoError(t, doc.Click("inc"))
	require.NoError(t, doc.Click("inc"))

	text, err = doc.TextOf("value")
	require.NoError(t, err)
	assert.Equal(t, "2", text)

	// no binding, no effect
	assert.NoError(t, doc.Click("value"))
	assert.ErrorIs(t, doc.Click("missing"), ErrNotFound)
}

func TestMountErrors(t *testing.T) {
	doc := NewDocument()
	require.NoError(t, doc.Mount("app", Div().Ref("a")))

	assert.ErrorIs(t, doc.Mount("app", Div()), ErrAlreadyMounted)
	assert.ErrorIs(t, doc.Mount("other", Div().Ref("a")), ErrDuplicateRef)

	// a failed mount leaves nothing behind
	require.NoError(t, doc.Mount("other", Div().Ref("b")))
	assert.ErrorIs(t, doc.Unmount("nope"), ErrNotMounted)
}

func TestUnmountStopsFollowingSource(t *testing.T) {
	label := signal.New("a")
	doc := NewDocument()
	require.NoError(t, doc.Mount("app", Span().Ref("label").DynText(label, label.Get)))

	label.Set("b")
	text, err := doc.TextOf("label")
	require.NoError(t, err)
	assert.Equal(t, "b", text)

	require.NoError(t, doc.Unmount("app"))
	_, err = doc.TextOf("label")
	assert.ErrorIs(t, err, ErrNotFound)

	// the source no longer has a subscriber into the document
	assert.NotPanics(t, func() { label.Set("c") })

	var buf bytes.Buffer
	require.NoError(t, doc.Render(&buf))
	assert.NotContains(t, buf.String(), `id="app"`)
}
