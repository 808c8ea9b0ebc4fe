package registry

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/mod/semver"
)

const (
	sourceReferenceTemplateConstant      = "%s@%s"
	semverPrefixConstant                 = "v"
	versionSeparatorConstant             = "."
	packageSpecSeparatorConstant         = "@"
	versionNotFoundTemplateConstant      = "no published version of %s matches %q"
	emptyVersionSpecMessageConstant      = "version spec required"
	binaryDecodingErrorTemplateConstant  = "decode bin field: %w"
	partialVersionComponentLimitConstant = 2
	relativePathPrefixConstant           = "./"
)

// Dist carries the download location and integrity of a published version.
type Dist struct {
	Tarball   string `json:"tarball"`
	Integrity string `json:"integrity"`
	Shasum    string `json:"shasum"`
}

// Binaries maps executable names to package relative paths. The registry publishes either a
// single path or an object.
type Binaries map[string]string

// UnmarshalJSON accepts both forms of the bin field. A bare string is keyed by an empty name.
func (binaries *Binaries) UnmarshalJSON(data []byte) error {
	var singlePath string
	if json.Unmarshal(data, &singlePath) == nil {
		*binaries = Binaries{"": singlePath}
		return nil
	}
	var namedPaths map[string]string
	if decodingError := json.Unmarshal(data, &namedPaths); decodingError != nil {
		return fmt.Errorf(binaryDecodingErrorTemplateConstant, decodingError)
	}
	*binaries = namedPaths
	return nil
}

// Paths returns the normalized relative paths of every binary.
func (binaries Binaries) Paths() []string {
	paths := make([]string, 0, len(binaries))
	for _, binaryPath := range binaries {
		normalizedPath := strings.TrimPrefix(strings.TrimSpace(binaryPath), relativePathPrefixConstant)
		if len(normalizedPath) > 0 {
			paths = append(paths, normalizedPath)
		}
	}
	sort.Strings(paths)
	return paths
}

// Manifest describes one published version.
type Manifest struct {
	Name            string   `json:"name"`
	Version         string   `json:"version"`
	GitHead         string   `json:"gitHead"`
	Bin             Binaries `json:"bin"`
	Dist            Dist     `json:"dist"`
	SourceReference string   `json:"-"`
}

// Packument lists every published version of a package.
type Packument struct {
	Name     string              `json:"name"`
	DistTags map[string]string   `json:"dist-tags"`
	Versions map[string]Manifest `json:"versions"`
}

// VersionNotFoundError reports a spec that matches no published version.
type VersionNotFoundError struct {
	PackageName string
	Spec        string
}

// Error describes the unmatched spec.
func (notFoundError VersionNotFoundError) Error() string {
	return fmt.Sprintf(versionNotFoundTemplateConstant, notFoundError.PackageName, notFoundError.Spec)
}

// PublishedVersions returns every valid published version in ascending semver order.
func (packument Packument) PublishedVersions() []string {
	publishedVersions := make([]string, 0, len(packument.Versions))
	for version := range packument.Versions {
		if semver.IsValid(semverPrefixConstant + version) {
			publishedVersions = append(publishedVersions, version)
		}
	}
	sort.Slice(publishedVersions, func(leftIndex int, rightIndex int) bool {
		return semver.Compare(semverPrefixConstant+publishedVersions[leftIndex], semverPrefixConstant+publishedVersions[rightIndex]) < 0
	})
	return publishedVersions
}

// Resolve maps a spec to a manifest. The spec may carry a leading "<name>@" and is tried as a
// dist-tag, then as an exact version, then as a major or major.minor prefix matched against
// stable releases.
func (packument Packument) Resolve(spec string) (Manifest, error) {
	trimmedSpec := strings.TrimSpace(spec)
	trimmedSpec = strings.TrimPrefix(trimmedSpec, packument.Name+packageSpecSeparatorConstant)
	if len(trimmedSpec) == 0 {
		return Manifest{}, VersionNotFoundError{PackageName: packument.Name, Spec: emptyVersionSpecMessageConstant}
	}

	if taggedVersion, tagged := packument.DistTags[trimmedSpec]; tagged {
		return packument.manifestFor(taggedVersion, trimmedSpec)
	}

	exactVersion := strings.TrimPrefix(trimmedSpec, semverPrefixConstant)
	if _, published := packument.Versions[exactVersion]; published {
		return packument.manifestFor(exactVersion, trimmedSpec)
	}

	if matchedVersion, matched := packument.highestMatchingPrefix(exactVersion); matched {
		return packument.manifestFor(matchedVersion, trimmedSpec)
	}

	return Manifest{}, VersionNotFoundError{PackageName: packument.Name, Spec: trimmedSpec}
}

func (packument Packument) manifestFor(version string, spec string) (Manifest, error) {
	manifest, published := packument.Versions[version]
	if !published {
		return Manifest{}, VersionNotFoundError{PackageName: packument.Name, Spec: spec}
	}
	if len(manifest.Name) == 0 {
		manifest.Name = packument.Name
	}
	if len(manifest.Version) == 0 {
		manifest.Version = version
	}
	manifest.SourceReference = fmt.Sprintf(sourceReferenceTemplateConstant, packument.Name, spec)
	return manifest, nil
}

func (packument Packument) highestMatchingPrefix(partialVersion string) (string, bool) {
	components := strings.Split(partialVersion, versionSeparatorConstant)
	if len(components) > partialVersionComponentLimitConstant || !semver.IsValid(semverPrefixConstant+partialVersion) {
		return "", false
	}

	canonicalPrefix := semverPrefixConstant + partialVersion
	publishedVersions := packument.PublishedVersions()
	for index := len(publishedVersions) - 1; index >= 0; index-- {
		candidate := semverPrefixConstant + publishedVersions[index]
		if len(semver.Prerelease(candidate)) > 0 {
			continue
		}
		if matchesPrefix(candidate, canonicalPrefix, len(components)) {
			return publishedVersions[index], true
		}
	}
	return "", false
}

func matchesPrefix(candidate string, prefix string, componentCount int) bool {
	if componentCount == 1 {
		return semver.Major(candidate) == semver.Major(prefix)
	}
	return semver.MajorMinor(candidate) == semver.MajorMinor(prefix)
}
