package scorm

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const manifestFileName = "imsmanifest.xml"

// ScoRecord is one launchable unit resolved from the manifest, in document
// order.
type ScoRecord struct {
	Identifier string
	Href       string
	Parameters string
}

// ParsedManifest is the pure in-memory result of resolving a package
// descriptor, ready to be persisted as a course.
type ParsedManifest struct {
	Title         string
	OrgIdentifier string
	DefaultLaunch string
	Scos          []ScoRecord
}

type manifestXML struct {
	XMLName       xml.Name         `xml:"manifest"`
	Organizations organizationsXML `xml:"organizations"`
	Resources     struct {
		Resources []resourceXML `xml:"resource"`
	} `xml:"resources"`
}

type organizationsXML struct {
	Default       string            `xml:"default,attr"`
	Organizations []organizationXML `xml:"organization"`
}

type organizationXML struct {
	Identifier string    `xml:"identifier,attr"`
	Title      string    `xml:"title"`
	Items      []itemXML `xml:"item"`
}

// itemXML nests arbitrarily; items without an identifierref are folder
// nodes whose children are still visited.
type itemXML struct {
	Identifier    string    `xml:"identifier,attr"`
	IdentifierRef string    `xml:"identifierref,attr"`
	Parameters    string    `xml:"parameters,attr"`
	Title         string    `xml:"title"`
	Items         []itemXML `xml:"item"`
}

type resourceXML struct {
	Identifier string `xml:"identifier,attr"`
	Href       string `xml:"href,attr"`
	Files      []struct {
		Href string `xml:"href,attr"`
	} `xml:"file"`
}

// FindManifest locates imsmanifest.xml at the extraction root or, for
// packages zipped with a wrapping folder, exactly one directory level down.
func FindManifest(dir string) (string, error) {
	direct := filepath.Join(dir, manifestFileName)
	if _, err := os.Stat(direct); err == nil {
		return direct, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read extraction dir: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		nested := filepath.Join(dir, entry.Name(), manifestFileName)
		if _, err := os.Stat(nested); err == nil {
			return nested, nil
		}
	}
	return "", ErrManifestNotFound
}

// ResolveManifest finds and parses the descriptor under dir.
func ResolveManifest(dir string) (ParsedManifest, error) {
	path, err := FindManifest(dir)
	if err != nil {
		return ParsedManifest{}, err
	}
	return ParseManifest(path)
}

// ParseManifest parses the descriptor into an ordered list of launchable
// units plus the course-level default launch target and title. A malformed
// or dangling resource reference fails the whole parse: partial courses
// are worse than rejected uploads.
func ParseManifest(path string) (ParsedManifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ParsedManifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var doc manifestXML
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return ParsedManifest{}, fmt.Errorf("%w: %v", ErrManifestInvalid, err)
	}

	resources := make(map[string]resourceXML, len(doc.Resources.Resources))
	for _, res := range doc.Resources.Resources {
		if res.Identifier == "" {
			return ParsedManifest{}, fmt.Errorf("%w: resource without identifier", ErrManifestInvalid)
		}
		resources[res.Identifier] = res
	}

	parsed := ParsedManifest{}

	defaultOrg := pickDefaultOrg(doc.Organizations)
	if defaultOrg != nil {
		parsed.Title = strings.TrimSpace(defaultOrg.Title)
		parsed.OrgIdentifier = defaultOrg.Identifier
	}

	// Depth-first, pre-order, in manifest document order across every
	// organization. The default org's first unit becomes the course
	// default launch.
	for i := range doc.Organizations.Organizations {
		org := &doc.Organizations.Organizations[i]
		scos, err := flattenItems(org.Items, resources)
		if err != nil {
			return ParsedManifest{}, err
		}
		if org == defaultOrg && len(scos) > 0 {
			parsed.DefaultLaunch = scos[0].Href
		}
		parsed.Scos = append(parsed.Scos, scos...)
	}

	if parsed.DefaultLaunch == "" && len(parsed.Scos) > 0 {
		parsed.DefaultLaunch = parsed.Scos[0].Href
	}
	if parsed.DefaultLaunch == "" {
		// No launchable item anywhere; fall back to any resource that
		// carries a usable href before giving up.
		parsed.DefaultLaunch = firstResourceHref(doc.Resources.Resources)
	}
	if parsed.DefaultLaunch == "" {
		return ParsedManifest{}, fmt.Errorf("%w: no launchable resource", ErrManifestInvalid)
	}

	return parsed, nil
}

func pickDefaultOrg(orgs organizationsXML) *organizationXML {
	if len(orgs.Organizations) == 0 {
		return nil
	}
	if orgs.Default != "" {
		for i := range orgs.Organizations {
			if orgs.Organizations[i].Identifier == orgs.Default {
				return &orgs.Organizations[i]
			}
		}
	}
	return &orgs.Organizations[0]
}

// flattenItems folds the item tree into a flat ordered list of launchable
// units. Folder nodes contribute nothing themselves but their descendants
// are still visited.
func flattenItems(items []itemXML, resources map[string]resourceXML) ([]ScoRecord, error) {
	var out []ScoRecord
	for _, item := range items {
		if item.IdentifierRef != "" {
			if item.Identifier == "" {
				return nil, fmt.Errorf("%w: item referencing %s has no identifier", ErrManifestInvalid, item.IdentifierRef)
			}
			res, ok := resources[item.IdentifierRef]
			if !ok {
				return nil, fmt.Errorf("%w: identifierref %s has no matching resource", ErrManifestInvalid, item.IdentifierRef)
			}
			href := res.Href
			if href == "" && len(res.Files) > 0 {
				href = res.Files[0].Href
			}
			if href == "" {
				return nil, fmt.Errorf("%w: resource %s has no href", ErrManifestInvalid, res.Identifier)
			}
			out = append(out, ScoRecord{
				Identifier: item.Identifier,
				Href:       href,
				Parameters: item.Parameters,
			})
		}
		children, err := flattenItems(item.Items, resources)
		if err != nil {
			return nil, err
		}
		out = append(out, children...)
	}
	return out, nil
}

func firstResourceHref(resources []resourceXML) string {
	for _, res := range resources {
		if res.Href != "" {
			return res.Href
		}
		if len(res.Files) > 0 && res.Files[0].Href != "" {
			return res.Files[0].Href
		}
	}
	return ""
}
