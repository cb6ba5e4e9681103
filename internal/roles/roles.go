// Package roles turns a caller-supplied session snapshot into the access
// profile that gates retrieval. Malformed input never errors: the caller
// gets the visitor profile and goes on.
package roles

import (
	"sort"
	"strings"

	"balcon-assistant/internal/models"
)

// flagCategories maps active profile flags to document categories. The
// flag names come from the university session payload.
var flagCategories = map[string]string{
	"es_estudiante":            "estudiantes",
	"es_profesor":              "docentes",
	"es_administrativo":        "administrativos",
	"es_externo":               "externos",
	"es_inscripcionaspirante":  "aspirantes",
	"es_postulante":            "postulantes",
	"es_inscripcionpostulante": "postulantes",
	"es_inscripcionadmision":   "admision",
	"es_postulanteempleo":      "empleo",
}

// Resolve walks every active profile entry in the session snapshot and
// collects the categories of its true flags. The profile always contains
// "general"; the label falls back to "Visitante" when nothing matched.
func Resolve(sessionData map[string]any) (models.AccessProfile, string) {
	profile := models.NewAccessProfile()
	labels := map[string]bool{}

	for _, personRaw := range sessionData {
		person, ok := personRaw.(map[string]any)
		if !ok {
			continue
		}
		entries, ok := person["perfiles"].([]any)
		if !ok {
			continue
		}
		for _, entryRaw := range entries {
			entry, ok := entryRaw.(map[string]any)
			if !ok {
				continue
			}
			if !boolField(entry, "status") {
				continue
			}
			for flag, category := range flagCategories {
				if boolField(entry, flag) {
					profile[category] = true
					labels[labelFromFlag(flag)] = true
				}
			}
		}
	}

	if len(labels) == 0 {
		return profile, models.VisitorLabel
	}
	names := make([]string, 0, len(labels))
	for l := range labels {
		names = append(names, l)
	}
	sort.Strings(names)
	return profile, strings.Join(names, ", ")
}

func boolField(m map[string]any, key string) bool {
	v, ok := m[key].(bool)
	return ok && v
}

// labelFromFlag strips the role-name boilerplate and title-cases the rest:
// es_estudiante -> Estudiante, es_inscripcionadmision -> Admision.
func labelFromFlag(flag string) string {
	name := strings.TrimPrefix(flag, "es_")
	name = strings.TrimPrefix(name, "inscripcion")
	if name == "" {
		return models.VisitorLabel
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
