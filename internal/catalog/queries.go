package catalog

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// NotFoundError is returned when a catalog record does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

type idTitle struct {
	ID    string
	Title string
}

// titles loads id -> title for the given ids of one table.
func titles(db *gorm.DB, model any, column string, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []idTitle
	err := db.Model(model).
		Select("id, "+column+" AS title").
		Where("id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return out, fmt.Errorf("failed to load titles: %w", err)
	}

	for _, r := range rows {
		out[r.ID] = r.Title
	}
	return out, nil
}

// AlbumTitles returns album id -> title.
func AlbumTitles(db *gorm.DB, ids []string) (map[string]string, error) {
	return titles(db, &Album{}, "title", ids)
}

// ShowTitles returns show id -> title.
func ShowTitles(db *gorm.DB, ids []string) (map[string]string, error) {
	return titles(db, &Show{}, "title", ids)
}

// UpdateTitles returns update id -> title.
func UpdateTitles(db *gorm.DB, ids []string) (map[string]string, error) {
	return titles(db, &Update{}, "title", ids)
}

// PlatformNames returns platform id -> name.
func PlatformNames(db *gorm.DB, ids []string) (map[string]string, error) {
	return titles(db, &Platform{}, "name", ids)
}

// LinkPlatforms returns album link id -> platform id for every album link.
func LinkPlatforms(db *gorm.DB) (map[string]string, error) {
	var links []AlbumLink
	if err := db.Select("id, platform_id").Find(&links).Error; err != nil {
		return map[string]string{}, fmt.Errorf("failed to load album links: %w", err)
	}

	out := make(map[string]string, len(links))
	for _, l := range links {
		out[l.ID] = l.PlatformID
	}
	return out, nil
}

type linkParent struct {
	ID       string
	ParentID string
}

func linkParents(db *gorm.DB, model any, parentColumn string) (map[string]string, error) {
	var rows []linkParent
	err := db.Model(model).
		Select("id, "+parentColumn+" AS parent_id").
		Scan(&rows).Error
	if err != nil {
		return map[string]string{}, fmt.Errorf("failed to load link parents: %w", err)
	}

	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.ID] = r.ParentID
	}
	return out, nil
}

// AlbumLinkAlbums returns album link id -> album id.
func AlbumLinkAlbums(db *gorm.DB) (map[string]string, error) {
	return linkParents(db, &AlbumLink{}, "album_id")
}

// ShowLinkShows returns show link id -> show id.
func ShowLinkShows(db *gorm.DB) (map[string]string, error) {
	return linkParents(db, &ShowLink{}, "event_id")
}

// UpdateLinkUpdates returns update link id -> update id.
func UpdateLinkUpdates(db *gorm.DB) (map[string]string, error) {
	return linkParents(db, &UpdateLink{}, "update_id")
}

// AlbumLinkIDs returns the link ids of one album.
func AlbumLinkIDs(db *gorm.DB, albumID string) ([]string, error) {
	var ids []string
	if err := db.Model(&AlbumLink{}).Where("album_id = ?", albumID).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to load album links: %w", err)
	}
	return ids, nil
}

// GetAlbum loads one album or returns a NotFoundError.
func GetAlbum(db *gorm.DB, id string) (*Album, error) {
	var album Album
	if err := db.Where("id = ?", id).First(&album).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Kind: "album", ID: id}
		}
		return nil, fmt.Errorf("unexpected error querying album: %w", err)
	}
	return &album, nil
}

// ListAlbums returns every album, newest release first.
func ListAlbums(db *gorm.DB) ([]Album, error) {
	var albums []Album
	if err := db.Order("release_date DESC, title ASC").Find(&albums).Error; err != nil {
		return nil, fmt.Errorf("failed to list albums: %w", err)
	}
	return albums, nil
}
