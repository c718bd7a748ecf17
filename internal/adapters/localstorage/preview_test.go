package localstorage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPreviewRoundTrip(t *testing.T) {
	p := NewPreview(filepath.Join(t.TempDir(), "out", "latest_newsletter.html"))
	ctx := context.Background()

	_, err := p.ReadPreview(ctx)
	require.ErrorIs(t, err, ErrPreviewNotFound)

	path, err := p.WritePreview(ctx, "<html>first</html>")
	require.NoError(t, err)
	require.Equal(t, "latest_newsletter.html", filepath.Base(path))

	_, err = p.WritePreview(ctx, "<html>second</html>")
	require.NoError(t, err)

	data, err := p.ReadPreview(ctx)
	require.NoError(t, err)
	require.Equal(t, "<html>second</html>", string(data))
}
