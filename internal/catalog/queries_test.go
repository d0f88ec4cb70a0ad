package catalog_test

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"musicpage/internal/catalog"
	"musicpage/internal/testsupport"
)

func TestMain(m *testing.M) {
	testsupport.UseTestEnvironment()
	os.Exit(m.Run())
}

func seed(t *testing.T, db *gorm.DB) {
	t.Helper()

	older := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.Create(&catalog.Platform{ID: "p-1", Name: "spotify", Slug: "spotify"}).Error)
	require.NoError(t, db.Create(&catalog.Platform{ID: "p-2", Name: "bandcamp", Slug: "bandcamp"}).Error)
	require.NoError(t, db.Create(&catalog.Album{ID: "a-1", Title: "Old Record", Slug: "old-record", ReleaseDate: &older}).Error)
	require.NoError(t, db.Create(&catalog.Album{ID: "a-2", Title: "New Record", Slug: "new-record", ReleaseDate: &newer}).Error)
	require.NoError(t, db.Create(&catalog.AlbumLink{ID: "l-1", AlbumID: "a-1", PlatformID: "p-1", URL: "https://x/1"}).Error)
	require.NoError(t, db.Create(&catalog.AlbumLink{ID: "l-2", AlbumID: "a-1", PlatformID: "p-2", URL: "https://x/2"}).Error)
	require.NoError(t, db.Create(&catalog.AlbumLink{ID: "l-3", AlbumID: "a-2", PlatformID: "p-1", URL: "https://x/3"}).Error)
	require.NoError(t, db.Create(&catalog.Show{ID: "s-1", Title: "Lisbon", StartsAt: newer}).Error)
	require.NoError(t, db.Create(&catalog.ShowLink{ID: "sl-1", ShowID: "s-1", URL: "https://tickets/1"}).Error)
	require.NoError(t, db.Create(&catalog.Update{ID: "u-1", Title: "Tour news", PublishedAt: newer}).Error)
	require.NoError(t, db.Create(&catalog.UpdateLink{ID: "ul-1", UpdateID: "u-1", URL: "https://news/1"}).Error)
}

func TestTitleLookups(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	seed(t, db)

	albums, err := catalog.AlbumTitles(db, []string{"a-1", "a-2", "missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a-1": "Old Record", "a-2": "New Record"}, albums)

	shows, err := catalog.ShowTitles(db, []string{"s-1"})
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", shows["s-1"])

	updates, err := catalog.UpdateTitles(db, []string{"u-1"})
	require.NoError(t, err)
	assert.Equal(t, "Tour news", updates["u-1"])

	platforms, err := catalog.PlatformNames(db, []string{"p-1", "p-2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"p-1": "spotify", "p-2": "bandcamp"}, platforms)

	empty, err := catalog.AlbumTitles(db, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLinkParents(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	seed(t, db)

	linkPlatforms, err := catalog.LinkPlatforms(db)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"l-1": "p-1", "l-2": "p-2", "l-3": "p-1"}, linkPlatforms)

	linkAlbums, err := catalog.AlbumLinkAlbums(db)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"l-1": "a-1", "l-2": "a-1", "l-3": "a-2"}, linkAlbums)

	showLinks, err := catalog.ShowLinkShows(db)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"sl-1": "s-1"}, showLinks)

	updateLinks, err := catalog.UpdateLinkUpdates(db)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ul-1": "u-1"}, updateLinks)

	ids, err := catalog.AlbumLinkIDs(db, "a-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"l-1", "l-2"}, ids)
}

func TestAlbums(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	seed(t, db)

	album, err := catalog.GetAlbum(db, "a-1")
	require.NoError(t, err)
	assert.Equal(t, "Old Record", album.Title)

	_, err = catalog.GetAlbum(db, "missing")
	var notFound *catalog.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "missing", notFound.ID)

	albums, err := catalog.ListAlbums(db)
	require.NoError(t, err)
	require.Len(t, albums, 2)
	assert.Equal(t, "a-2", albums[0].ID)
}

func TestGeneratedIDs(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	album := catalog.Album{Title: "Untitled", Slug: "untitled"}
	require.NoError(t, db.Create(&album).Error)
	assert.NotEmpty(t, album.ID)
}
