package edflex

// mapContent flattens a raw JSON:API resource into a normalized Content.
// Pure transform: no I/O, absent attributes stay empty strings.
func mapContent(r resource) Content {
	return Content{
		ExternalID:         r.ID,
		Title:              r.Attributes.Title,
		Type:               r.Attributes.Type,
		Language:           r.Attributes.Language,
		Difficulty:         r.Attributes.Difficulty,
		Duration:           r.Attributes.Duration,
		Author:             r.Attributes.Author,
		CanonicalURL:       r.Attributes.URL,
		PackageDownloadURL: r.Attributes.PackageURL,
		Description:        r.Attributes.Description,
	}
}

func mapCategory(r resource) Category {
	return Category{
		ID:           r.ID,
		Name:         r.Attributes.Name,
		NestingLevel: r.Attributes.NestingLevel,
	}
}

func mapCatalog(r resource) Catalog {
	return Catalog{
		ID:   r.ID,
		Name: r.Attributes.Name,
	}
}
