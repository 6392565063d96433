package query

import (
	"database/sql"
	"encoding/json/v2"
	"fmt"
	"time"

	"github.com/mirador-app/mirador-server/internal/domain"
)

// specs is the closed vocabulary registry: one entry per entity type.
// Adding a filter field or sort key means extending the relevant map here,
// nothing else.
var specs = map[domain.EntityType]*entitySpec{
	domain.TypeScene: {
		table:       "scenes",
		selectCols:  "e.id, e.title, e.details, e.date, e.duration_sec, e.studio_id, e.created_at, e.updated_at",
		textColumns: []string{"title", "details"},
		numeric: map[string]string{
			"duration":      "e.duration_sec",
			"rating":        exprRating,
			"favorite":      exprFavorite,
			"play_count":    exprPlayCount,
			"play_duration": exprPlayDuration,
		},
		relations: map[string]relationSpec{
			"performers": {junction: "scene_performers", ownerCol: "scene_id", relCol: "performer_id"},
			"tags":       {junction: "scene_tags_all", ownerCol: "scene_id", relCol: "tag_id"},
			"groups":     {junction: "scene_groups", ownerCol: "scene_id", relCol: "group_id"},
			"galleries":  {junction: "scene_galleries", ownerCol: "scene_id", relCol: "gallery_id"},
			"studios":    {column: "studio_id"},
		},
		sorts: map[string]string{
			"title":          "e.title COLLATE NOCASE",
			"date":           "e.date",
			"duration":       "e.duration_sec",
			"created_at":     "e.created_at",
			"updated_at":     "e.updated_at",
			"rating":         exprRating,
			"play_count":     exprPlayCount,
			"last_played_at": "ws.last_viewed_at",
		},
	},
	domain.TypePerformer: {
		table:       "performers",
		selectCols:  "e.id, e.name, e.aliases, e.country, e.birth_year, e.created_at, e.updated_at",
		textColumns: []string{"name", "aliases", "country"},
		numeric: map[string]string{
			"birth_year": "e.birth_year",
			"rating":     exprRating,
			"favorite":   exprFavorite,
		},
		relations: map[string]relationSpec{
			"tags": {junction: "performer_tags", ownerCol: "performer_id", relCol: "tag_id"},
		},
		sorts: map[string]string{
			"name":       "e.name COLLATE NOCASE",
			"birth_year": "e.birth_year",
			"created_at": "e.created_at",
			"updated_at": "e.updated_at",
			"rating":     exprRating,
		},
	},
	domain.TypeStudio: {
		table:       "studios",
		selectCols:  "e.id, e.name, e.url, e.created_at, e.updated_at",
		textColumns: []string{"name"},
		numeric: map[string]string{
			"rating":   exprRating,
			"favorite": exprFavorite,
		},
		relations: map[string]relationSpec{
			"tags": {junction: "studio_tags", ownerCol: "studio_id", relCol: "tag_id"},
		},
		sorts: map[string]string{
			"name":       "e.name COLLATE NOCASE",
			"created_at": "e.created_at",
			"updated_at": "e.updated_at",
			"rating":     exprRating,
		},
	},
	domain.TypeTag: {
		table:       "tags",
		selectCols:  "e.id, e.name, e.description, e.created_at, e.updated_at",
		textColumns: []string{"name", "description"},
		numeric:     map[string]string{},
		relations: map[string]relationSpec{
			"parents": {junction: "tag_parents", ownerCol: "tag_id", relCol: "parent_id"},
		},
		sorts: map[string]string{
			"name":       "e.name COLLATE NOCASE",
			"created_at": "e.created_at",
			"updated_at": "e.updated_at",
		},
	},
	domain.TypeGroup: {
		table:       "groups",
		selectCols:  "e.id, e.name, e.date, e.created_at, e.updated_at",
		textColumns: []string{"name"},
		numeric: map[string]string{
			"rating":   exprRating,
			"favorite": exprFavorite,
		},
		relations: map[string]relationSpec{
			"tags": {junction: "group_tags", ownerCol: "group_id", relCol: "tag_id"},
		},
		sorts: map[string]string{
			"name":       "e.name COLLATE NOCASE",
			"date":       "e.date",
			"created_at": "e.created_at",
			"updated_at": "e.updated_at",
			"rating":     exprRating,
		},
	},
	domain.TypeGallery: {
		table:       "galleries",
		selectCols:  "e.id, e.title, e.date, e.created_at, e.updated_at",
		textColumns: []string{"title"},
		numeric: map[string]string{
			"rating":   exprRating,
			"favorite": exprFavorite,
		},
		relations: map[string]relationSpec{
			"tags":   {junction: "gallery_tags", ownerCol: "gallery_id", relCol: "tag_id"},
			"scenes": {junction: "scene_galleries", ownerCol: "gallery_id", relCol: "scene_id"},
		},
		sorts: map[string]string{
			"title":      "e.title COLLATE NOCASE",
			"date":       "e.date",
			"created_at": "e.created_at",
			"updated_at": "e.updated_at",
			"rating":     exprRating,
		},
	},
	domain.TypeImage: {
		table:       "images",
		selectCols:  "e.id, e.title, e.created_at, e.updated_at",
		textColumns: []string{"title"},
		numeric: map[string]string{
			"rating":     exprRating,
			"favorite":   exprFavorite,
			"play_count": exprPlayCount,
		},
		relations: map[string]relationSpec{
			"tags":      {junction: "image_tags_all", ownerCol: "image_id", relCol: "tag_id"},
			"galleries": {junction: "gallery_images", ownerCol: "image_id", relCol: "gallery_id"},
		},
		sorts: map[string]string{
			"title":      "e.title COLLATE NOCASE",
			"created_at": "e.created_at",
			"updated_at": "e.updated_at",
			"rating":     exprRating,
		},
	},
}

func parseTimestamps(createdAt, updatedAt string) (time.Time, time.Time, error) {
	c, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	u, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return c, u, nil
}

// scanInto scans one row of the base query into the Result's typed slice
// for the requested type. Scan order must match the spec's selectCols.
func scanInto(typ domain.EntityType, rows *sql.Rows, res *Result) error {
	switch typ {
	case domain.TypeScene:
		var (
			s                    domain.Scene
			details, date        sql.NullString
			studioID             sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&s.ID, &s.Title, &details, &date, &s.DurationSec, &studioID, &createdAt, &updatedAt); err != nil {
			return err
		}
		s.Details = details.String
		s.Date = date.String
		if studioID.Valid {
			s.StudioID = &studioID.String
		}
		var err error
		s.CreatedAt, s.UpdatedAt, err = parseTimestamps(createdAt, updatedAt)
		if err != nil {
			return err
		}
		res.Scenes = append(res.Scenes, &s)

	case domain.TypePerformer:
		var (
			p                    domain.Performer
			aliases              string
			country              sql.NullString
			birthYear            sql.NullInt64
			createdAt, updatedAt string
		)
		if err := rows.Scan(&p.ID, &p.Name, &aliases, &country, &birthYear, &createdAt, &updatedAt); err != nil {
			return err
		}
		if aliases != "" {
			if err := json.Unmarshal([]byte(aliases), &p.Aliases); err != nil {
				return fmt.Errorf("unmarshal aliases for %s: %w", p.ID, err)
			}
		}
		p.Country = country.String
		p.BirthYear = int(birthYear.Int64)
		var err error
		p.CreatedAt, p.UpdatedAt, err = parseTimestamps(createdAt, updatedAt)
		if err != nil {
			return err
		}
		res.Performers = append(res.Performers, &p)

	case domain.TypeStudio:
		var (
			s                    domain.Studio
			url                  sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&s.ID, &s.Name, &url, &createdAt, &updatedAt); err != nil {
			return err
		}
		s.URL = url.String
		var err error
		s.CreatedAt, s.UpdatedAt, err = parseTimestamps(createdAt, updatedAt)
		if err != nil {
			return err
		}
		res.Studios = append(res.Studios, &s)

	case domain.TypeTag:
		var (
			t                    domain.Tag
			description          sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&t.ID, &t.Name, &description, &createdAt, &updatedAt); err != nil {
			return err
		}
		t.Description = description.String
		var err error
		t.CreatedAt, t.UpdatedAt, err = parseTimestamps(createdAt, updatedAt)
		if err != nil {
			return err
		}
		res.Tags = append(res.Tags, &t)

	case domain.TypeGroup:
		var (
			g                    domain.Group
			date                 sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&g.ID, &g.Name, &date, &createdAt, &updatedAt); err != nil {
			return err
		}
		g.Date = date.String
		var err error
		g.CreatedAt, g.UpdatedAt, err = parseTimestamps(createdAt, updatedAt)
		if err != nil {
			return err
		}
		res.Groups = append(res.Groups, &g)

	case domain.TypeGallery:
		var (
			g                    domain.Gallery
			date                 sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&g.ID, &g.Title, &date, &createdAt, &updatedAt); err != nil {
			return err
		}
		g.Date = date.String
		var err error
		g.CreatedAt, g.UpdatedAt, err = parseTimestamps(createdAt, updatedAt)
		if err != nil {
			return err
		}
		res.Galleries = append(res.Galleries, &g)

	case domain.TypeImage:
		var (
			i                    domain.Image
			title                sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&i.ID, &title, &createdAt, &updatedAt); err != nil {
			return err
		}
		i.Title = title.String
		var err error
		i.CreatedAt, i.UpdatedAt, err = parseTimestamps(createdAt, updatedAt)
		if err != nil {
			return err
		}
		res.Images = append(res.Images, &i)

	default:
		return fmt.Errorf("unknown entity type %q", typ)
	}
	return nil
}
