package utils

import "fmt"

// ArtifactStorageKey builds the bucket key for an uploaded fat jar.
// Layout: artifacts/{name}/versions/{version}/fatjar/{name}-{version}.jar
func ArtifactStorageKey(name, version string) string {
	return fmt.Sprintf("artifacts/%s/versions/%s/fatjar/%s-%s.jar", name, version, name, version)
}

// ArtifactFilename is the download filename for an artifact jar.
func ArtifactFilename(name, version string) string {
	return fmt.Sprintf("%s-%s.jar", name, version)
}
