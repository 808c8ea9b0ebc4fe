package tarball

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	// PackagePrefix is the top-level directory npm places every tarball entry under.
	PackagePrefix = "package"

	regularFileModeConstant            = 0o644
	executableFileModeConstant         = 0o755
	directoryModeConstant              = 0o755
	executableBitsConstant             = 0o111
	archivePathSeparatorConstant       = "/"
	parentDirectoryConstant            = ".."
	openArchiveErrorTemplateConstant   = "open archive %s: %w"
	readArchiveErrorTemplateConstant   = "read archive %s: %w"
	unsafeEntryErrorTemplateConstant   = "archive entry %q escapes %s"
	writeEntryErrorTemplateConstant    = "write %s: %w"
	createArchiveErrorTemplateConstant = "create archive %s: %w"
	walkErrorTemplateConstant          = "walk %s: %w"
	symlinkModeConstant                = 0o777
)

// PackModificationTime is the fixed mtime npm pack stamps on every entry.
var PackModificationTime = time.Date(1985, time.October, 26, 8, 15, 0, 0, time.UTC)

// UnsafeEntryError reports an archive entry that would be written outside the destination.
type UnsafeEntryError struct {
	EntryName   string
	Destination string
}

// Error describes the rejected entry.
func (unsafeError UnsafeEntryError) Error() string {
	return fmt.Sprintf(unsafeEntryErrorTemplateConstant, unsafeError.EntryName, unsafeError.Destination)
}

// PackOptions controls Pack.
type PackOptions struct {
	Prefix          string
	ExecutablePaths []string
}

// Extract unpacks a gzipped tarball into destination, dropping the first stripComponents path
// components of every entry. Directories, regular files and symlinks are materialized; a symlink
// whose target resolves outside destination is rejected.
func Extract(archivePath string, destination string, stripComponents int) error {
	archiveFile, openError := os.Open(archivePath)
	if openError != nil {
		return fmt.Errorf(openArchiveErrorTemplateConstant, archivePath, openError)
	}
	defer archiveFile.Close()

	gzipReader, gzipError := gzip.NewReader(archiveFile)
	if gzipError != nil {
		return fmt.Errorf(readArchiveErrorTemplateConstant, archivePath, gzipError)
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)
	for {
		header, headerError := tarReader.Next()
		if errors.Is(headerError, io.EOF) {
			return nil
		}
		if headerError != nil {
			return fmt.Errorf(readArchiveErrorTemplateConstant, archivePath, headerError)
		}

		relativePath, keep := stripEntryName(header.Name, stripComponents)
		if !keep {
			continue
		}
		targetPath, safe := resolveWithin(destination, relativePath)
		if !safe {
			return UnsafeEntryError{EntryName: header.Name, Destination: destination}
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if mkdirError := os.MkdirAll(targetPath, directoryModeConstant); mkdirError != nil {
				return fmt.Errorf(writeEntryErrorTemplateConstant, targetPath, mkdirError)
			}
		case tar.TypeReg:
			if writeError := writeRegularFile(targetPath, tarReader, header.FileInfo().Mode()); writeError != nil {
				return writeError
			}
		case tar.TypeSymlink:
			if !symlinkStaysWithin(destination, targetPath, header.Linkname) {
				return UnsafeEntryError{EntryName: header.Name, Destination: destination}
			}
			if linkError := writeSymlink(targetPath, header.Linkname); linkError != nil {
				return linkError
			}
		}
	}
}

// Pack writes a deterministic gzipped tarball of sourceDirectory: entries sorted lexically under
// options.Prefix, no ownership data, a fixed mtime, 0644 files, 0755 directories and 0755
// executables. Symlinks are stored as symlink entries with their original target.
func Pack(sourceDirectory string, archivePath string, options PackOptions) error {
	archiveFile, createError := os.Create(archivePath)
	if createError != nil {
		return fmt.Errorf(createArchiveErrorTemplateConstant, archivePath, createError)
	}

	gzipWriter, gzipError := gzip.NewWriterLevel(archiveFile, gzip.BestCompression)
	if gzipError != nil {
		archiveFile.Close()
		return fmt.Errorf(createArchiveErrorTemplateConstant, archivePath, gzipError)
	}
	tarWriter := tar.NewWriter(gzipWriter)

	executablePaths := make(map[string]struct{}, len(options.ExecutablePaths))
	for _, executablePath := range options.ExecutablePaths {
		executablePaths[path.Clean(executablePath)] = struct{}{}
	}

	walkError := filepath.WalkDir(sourceDirectory, func(currentPath string, entry fs.DirEntry, entryError error) error {
		if entryError != nil {
			return entryError
		}
		relativePath, relativeError := filepath.Rel(sourceDirectory, currentPath)
		if relativeError != nil {
			return relativeError
		}
		if relativePath == "." {
			return nil
		}
		archiveName := path.Join(options.Prefix, filepath.ToSlash(relativePath))

		switch {
		case entry.IsDir():
			return tarWriter.WriteHeader(&tar.Header{
				Typeflag: tar.TypeDir,
				Name:     archiveName + archivePathSeparatorConstant,
				Mode:     directoryModeConstant,
				ModTime:  PackModificationTime,
			})
		case entry.Type().IsRegular():
			entryInfo, infoError := entry.Info()
			if infoError != nil {
				return infoError
			}
			fileMode := int64(regularFileModeConstant)
			if _, isBinary := executablePaths[filepath.ToSlash(relativePath)]; isBinary || entryInfo.Mode().Perm()&executableBitsConstant != 0 {
				fileMode = executableFileModeConstant
			}
			return writeArchiveFile(tarWriter, currentPath, &tar.Header{
				Typeflag: tar.TypeReg,
				Name:     archiveName,
				Mode:     fileMode,
				Size:     entryInfo.Size(),
				ModTime:  PackModificationTime,
			})
		case entry.Type()&fs.ModeSymlink != 0:
			linkTarget, readLinkError := os.Readlink(currentPath)
			if readLinkError != nil {
				return readLinkError
			}
			return tarWriter.WriteHeader(&tar.Header{
				Typeflag: tar.TypeSymlink,
				Name:     archiveName,
				Linkname: linkTarget,
				Mode:     symlinkModeConstant,
				ModTime:  PackModificationTime,
			})
		default:
			return nil
		}
	})

	closeError := errors.Join(tarWriter.Close(), gzipWriter.Close(), archiveFile.Close())
	if walkError != nil {
		return fmt.Errorf(walkErrorTemplateConstant, sourceDirectory, walkError)
	}
	if closeError != nil {
		return fmt.Errorf(createArchiveErrorTemplateConstant, archivePath, closeError)
	}
	return nil
}

// CopyTree copies the regular files, directories and symlinks under source into destination,
// preserving the permission bits. Symlinks are recreated with their original target.
func CopyTree(source string, destination string) error {
	return filepath.WalkDir(source, func(currentPath string, entry fs.DirEntry, entryError error) error {
		if entryError != nil {
			return entryError
		}
		relativePath, relativeError := filepath.Rel(source, currentPath)
		if relativeError != nil {
			return relativeError
		}
		targetPath := filepath.Join(destination, relativePath)

		if entry.IsDir() {
			return os.MkdirAll(targetPath, directoryModeConstant)
		}
		if entry.Type()&fs.ModeSymlink != 0 {
			linkTarget, readLinkError := os.Readlink(currentPath)
			if readLinkError != nil {
				return readLinkError
			}
			return writeSymlink(targetPath, linkTarget)
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		entryInfo, infoError := entry.Info()
		if infoError != nil {
			return infoError
		}
		sourceFile, openError := os.Open(currentPath)
		if openError != nil {
			return openError
		}
		defer sourceFile.Close()
		return writeRegularFile(targetPath, sourceFile, entryInfo.Mode())
	})
}

func writeArchiveFile(tarWriter *tar.Writer, sourcePath string, header *tar.Header) error {
	if headerError := tarWriter.WriteHeader(header); headerError != nil {
		return headerError
	}
	sourceFile, openError := os.Open(sourcePath)
	if openError != nil {
		return openError
	}
	defer sourceFile.Close()
	_, copyError := io.Copy(tarWriter, sourceFile)
	return copyError
}

func writeRegularFile(targetPath string, content io.Reader, mode fs.FileMode) error {
	if mkdirError := os.MkdirAll(filepath.Dir(targetPath), directoryModeConstant); mkdirError != nil {
		return fmt.Errorf(writeEntryErrorTemplateConstant, targetPath, mkdirError)
	}
	fileMode := fs.FileMode(regularFileModeConstant)
	if mode.Perm()&executableBitsConstant != 0 {
		fileMode = executableFileModeConstant
	}
	targetFile, createError := os.OpenFile(targetPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fileMode)
	if createError != nil {
		return fmt.Errorf(writeEntryErrorTemplateConstant, targetPath, createError)
	}
	_, copyError := io.Copy(targetFile, content)
	if writeError := errors.Join(copyError, targetFile.Close()); writeError != nil {
		return fmt.Errorf(writeEntryErrorTemplateConstant, targetPath, writeError)
	}
	return nil
}

func writeSymlink(targetPath string, linkTarget string) error {
	if mkdirError := os.MkdirAll(filepath.Dir(targetPath), directoryModeConstant); mkdirError != nil {
		return fmt.Errorf(writeEntryErrorTemplateConstant, targetPath, mkdirError)
	}
	if removeError := os.Remove(targetPath); removeError != nil && !errors.Is(removeError, fs.ErrNotExist) {
		return fmt.Errorf(writeEntryErrorTemplateConstant, targetPath, removeError)
	}
	if linkError := os.Symlink(linkTarget, targetPath); linkError != nil {
		return fmt.Errorf(writeEntryErrorTemplateConstant, targetPath, linkError)
	}
	return nil
}

func symlinkStaysWithin(destination string, linkPath string, linkTarget string) bool {
	if filepath.IsAbs(linkTarget) || path.IsAbs(linkTarget) {
		return false
	}
	resolvedTarget := filepath.Join(filepath.Dir(linkPath), filepath.FromSlash(linkTarget))
	relativeToDestination, relativeError := filepath.Rel(destination, resolvedTarget)
	return relativeError == nil && relativeToDestination != parentDirectoryConstant &&
		!strings.HasPrefix(relativeToDestination, parentDirectoryConstant+string(filepath.Separator))
}

func stripEntryName(entryName string, stripComponents int) (string, bool) {
	components := strings.Split(strings.Trim(path.Clean(entryName), archivePathSeparatorConstant), archivePathSeparatorConstant)
	if len(components) <= stripComponents {
		return "", false
	}
	return path.Join(components[stripComponents:]...), true
}

func resolveWithin(destination string, relativePath string) (string, bool) {
	if path.IsAbs(relativePath) || relativePath == parentDirectoryConstant || strings.HasPrefix(relativePath, parentDirectoryConstant+archivePathSeparatorConstant) {
		return "", false
	}
	targetPath := filepath.Join(destination, filepath.FromSlash(relativePath))
	relativeToDestination, relativeError := filepath.Rel(destination, targetPath)
	if relativeError != nil || relativeToDestination == parentDirectoryConstant || strings.HasPrefix(relativeToDestination, parentDirectoryConstant+string(filepath.Separator)) {
		return "", false
	}
	return targetPath, true
}
