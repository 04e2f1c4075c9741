package feedimport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/contentflow/internal/domain"
	"github.com/ignite/contentflow/internal/service/content"
)

const rss = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Acme Blog</title>
  <item>
    <title>Launch week</title>
    <link>https://acme.test/launch</link>
    <description><![CDATA[<p>We shipped <b>three</b> things &amp; more.</p>]]></description>
  </item>
  <item>
    <title></title>
    <description>No title here</description>
  </item>
  <item>
    <title>Roadmap</title>
    <description>What comes next.</description>
  </item>
</channel>
</rss>`

// local admits the loopback httptest servers.
var local = Options{AllowPrivate: true}

type recordingCreator struct {
	cmds []content.CreateContent
	err  error
}

func (r *recordingCreator) Handle(_ context.Context, cmd content.CreateContent) (*domain.Content, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.cmds = append(r.cmds, cmd)
	return &domain.Content{ID: fmt.Sprintf("c%d", len(r.cmds)), Title: cmd.Title, Type: cmd.Type, Body: cmd.Body, UserID: cmd.OwnerID}, nil
}

func feedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestImporter_Import(t *testing.T) {
	srv := feedServer(t, rss)
	creator := &recordingCreator{}
	im := NewImporter(creator, local)

	res, err := im.Import(context.Background(), ImportFeed{OwnerID: "u1", URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "Acme Blog", res.FeedTitle)
	assert.Len(t, res.Created, 2)
	assert.Equal(t, 1, res.Skipped)

	require.Len(t, creator.cmds, 2)
	first := creator.cmds[0]
	assert.Equal(t, "u1", first.OwnerID)
	assert.Equal(t, domain.ContentBlogArticle, first.Type)
	assert.Equal(t, "Launch week", first.Title)
	assert.Equal(t, "We shipped three things & more.\n\nSource: https://acme.test/launch", first.Body)
	assert.Equal(t, "What comes next.", creator.cmds[1].Body)
}

func TestImporter_Limit(t *testing.T) {
	srv := feedServer(t, rss)
	creator := &recordingCreator{}
	res, err := NewImporter(creator, local).Import(context.Background(), ImportFeed{OwnerID: "u1", URL: srv.URL, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, res.Created, 1)
}

func TestImporter_Errors(t *testing.T) {
	ctx := context.Background()
	_, err := NewImporter(&recordingCreator{}, local).Import(ctx, ImportFeed{OwnerID: "u1"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	bad := feedServer(t, "not a feed")
	_, err = NewImporter(&recordingCreator{}, local).Import(ctx, ImportFeed{OwnerID: "u1", URL: bad.URL})
	assert.ErrorIs(t, err, domain.ErrValidation)

	srv := feedServer(t, rss)
	_, err = NewImporter(&recordingCreator{err: domain.ErrNotFound}, local).Import(ctx, ImportFeed{OwnerID: "ghost", URL: srv.URL})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "a\nb", stripHTML("a<br/>b"))
	assert.Equal(t, "one\n\ntwo", stripHTML("<p>one</p><p>two</p>"))
}

func TestImporter_RefusesInternalAddresses(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		fmt.Fprint(w, rss)
	}))
	t.Cleanup(srv.Close)
	_, port, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)

	im := NewImporter(&recordingCreator{}, Options{})
	ctx := context.Background()
	for _, raw := range []string{
		srv.URL,
		"http://localhost:" + port + "/feed",
		"http://169.254.169.254/latest/meta-data/",
		"http://[::1]:" + port + "/",
		"http://10.0.0.8/rss",
		"file:///etc/passwd",
		"gopher://example.com/",
	} {
		_, err := im.Import(ctx, ImportFeed{OwnerID: "u1", URL: raw})
		assert.ErrorIs(t, err, domain.ErrValidation, raw)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits), "no request reached the internal server")
}

func TestImporter_ChecksEveryRedirectHop(t *testing.T) {
	var internalHits int32
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&internalHits, 1)
		fmt.Fprint(w, rss)
	}))
	t.Cleanup(internal.Close)
	_, port, err := net.SplitHostPort(internal.Listener.Addr().String())
	require.NoError(t, err)

	redirector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://localhost:"+port+"/feed", http.StatusFound)
	}))
	t.Cleanup(redirector.Close)

	// Only the redirector's host is allowed; the hop to localhost is not.
	im := NewImporter(&recordingCreator{}, Options{AllowPrivate: true, AllowedHosts: []string{"127.0.0.1"}})
	_, err = im.Import(context.Background(), ImportFeed{OwnerID: "u1", URL: redirector.URL})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.ErrorIs(t, err, ErrBlockedAddress)
	assert.Equal(t, int32(0), atomic.LoadInt32(&internalHits))
}

func TestGuard_CheckURL(t *testing.T) {
	g := guard{hosts: []string{"acme.test"}}

	_, err := g.checkURL("https://blog.acme.test/feed.xml")
	assert.NoError(t, err)
	_, err = g.checkURL("https://acme.test/feed.xml")
	assert.NoError(t, err)

	_, err = g.checkURL("https://evil-acme.test/feed.xml")
	assert.ErrorIs(t, err, ErrBlockedAddress)
	_, err = g.checkURL("ftp://acme.test/feed.xml")
	assert.ErrorIs(t, err, ErrBlockedAddress)
	_, err = g.checkURL("https:///feed.xml")
	assert.ErrorIs(t, err, ErrBlockedAddress)
}

func TestGuard_AddrAllowed(t *testing.T) {
	g := guard{}
	for _, blocked := range []string{"127.0.0.1", "::1", "10.1.2.3", "172.16.0.1", "192.168.1.1",
		"169.254.169.254", "fe80::1", "0.0.0.0", "100.64.0.1", "::ffff:127.0.0.1", "fd00::1"} {
		assert.False(t, g.addrAllowed(netip.MustParseAddr(blocked)), blocked)
	}
	for _, ok := range []string{"93.184.216.34", "2606:4700::1111"} {
		assert.True(t, g.addrAllowed(netip.MustParseAddr(ok)), ok)
	}
	assert.True(t, guard{allowPrivate: true}.addrAllowed(netip.MustParseAddr("127.0.0.1")))

	assert.ErrorIs(t, g.control("tcp", "169.254.169.254:80", nil), ErrBlockedAddress)
	assert.NoError(t, g.control("tcp", "93.184.216.34:443", nil))
}
