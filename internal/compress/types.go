// Package compress implements MediaGit's per-object-type compression
// strategy selection: which algorithm and level to use for a given file
// type, with an expansion-safe fallback to raw storage and magic-byte
// auto-detection on decompress.
package compress

import (
	"path/filepath"
	"strings"
)

// Algorithm identifies a compression codec.
type Algorithm int

const (
	AlgorithmStore Algorithm = iota
	AlgorithmZlib
	AlgorithmZstd
	AlgorithmBrotli
)

// Level is a speed/ratio tradeoff knob, independent of Algorithm.
type Level int

const (
	LevelFast Level = iota
	LevelDefault
	LevelBest
)

// Strategy pairs an Algorithm with a Level. AlgorithmStore ignores Level.
type Strategy struct {
	Algorithm Algorithm
	Level     Level
}

var storeStrategy = Strategy{Algorithm: AlgorithmStore}

// ObjectType classifies file content for strategy selection. The
// extension table below is deliberately large: media pipelines deal in
// dozens of container and creative-tool formats, and getting the
// classification right is most of what makes the compression layer
// worth having.
type ObjectType int

const (
	TypeUnknown ObjectType = iota

	// Already-compressed image formats (lossy).
	TypeJpeg
	TypePng
	TypeGif
	TypeWebp
	TypeAvif
	TypeHeic
	TypeGPUTexture

	// Uncompressed/lossless image formats.
	TypeTiff
	TypeBmp
	TypeRaw
	TypeExr
	TypeHdr

	// Video (typically already compressed).
	TypeMp4
	TypeMov
	TypeAvi
	TypeMkv
	TypeWebm
	TypeFlv
	TypeWmv
	TypeMpg

	// Audio (compressed).
	TypeMp3
	TypeAac
	TypeOgg
	TypeOpus

	// Audio (uncompressed/lossless).
	TypeFlac
	TypeWav
	TypeAiff
	TypeAlac

	// Documents.
	TypePdf
	TypeSvg
	TypeEps

	// Text/code.
	TypeText
	TypeJSON
	TypeXML
	TypeYAML
	TypeTOML
	TypeCSV

	// Archives (already compressed).
	TypeZip
	TypeTar
	TypeGz
	TypeSevenZ
	TypeRar
	TypeCompressedLog

	// ML/data formats.
	TypeParquet
	TypeMlData
	TypeMlModel
	TypeMlDeployment
	TypeMlCheckpoint
	TypeMlInference

	// Creative project files.
	TypeAdobePhotoshop
	TypeAdobeIllustrator
	TypeAdobeIndesign
	TypeAdobeAfterEffects
	TypeAdobePremiere
	TypeDavinciResolve
	TypeFinalCutPro
	TypeAvidMediaComposer
	TypeBlender
	TypeMaya
	TypeThreeDsMax
	TypeCinema4D
	TypeHoudini
	TypeProTools
	TypeAbletonLive
	TypeFLStudio
	TypeLogicPro
	TypeAutoCad
	TypeSketchUp
	TypeRevit
	TypeUnityProject
	TypeUnrealProject
	TypeGodotProject

	// Office documents.
	TypeWordDocument
	TypeExcelSpreadsheet
	TypePowerpointPresentation
	TypeOpenDocument

	// Database.
	TypeSqliteDatabase

	// Version-control objects (for the git-compatibility strategy row).
	TypeGitBlob
	TypeGitTree
	TypeGitCommit
)

// Category groups ObjectTypes by media family. delta.ConfigForType and
// similarity.TypeThreshold key their per-family tuning on it.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryImage
	CategoryVideo
	CategoryAudio
	CategoryDocument
	CategoryText
	CategoryArchive
	CategoryCreativeProject
	CategoryOffice
	CategoryMlSpecialized
	CategoryDatabase
	CategoryGitObject
)

var extensionTable = map[string]ObjectType{
	"jpg": TypeJpeg, "jpeg": TypeJpeg,
	"png":  TypePng,
	"gif":  TypeGif,
	"webp": TypeWebp,
	"avif": TypeAvif,
	"heic": TypeHeic, "heif": TypeHeic,

	"dds": TypeGPUTexture, "ktx": TypeGPUTexture, "ktx2": TypeGPUTexture,
	"astc": TypeGPUTexture, "pvr": TypeGPUTexture, "basis": TypeGPUTexture,

	"tif": TypeTiff, "tiff": TypeTiff,
	"bmp": TypeBmp, "dib": TypeBmp,
	"raw": TypeRaw, "cr2": TypeRaw, "cr3": TypeRaw, "nef": TypeRaw,
	"arw": TypeRaw, "dng": TypeRaw, "orf": TypeRaw, "rw2": TypeRaw,
	"exr": TypeExr,
	"hdr": TypeHdr, "pic": TypeHdr,

	"mp4": TypeMp4, "m4v": TypeMp4,
	"mov": TypeMov, "qt": TypeMov,
	"avi": TypeAvi,
	"mkv": TypeMkv,
	"webm": TypeWebm,
	"flv": TypeFlv, "f4v": TypeFlv,
	"wmv": TypeWmv, "asf": TypeWmv,
	"mpg": TypeMpg, "mpeg": TypeMpg, "m2v": TypeMpg,

	"mp3": TypeMp3,
	"aac": TypeAac, "m4a": TypeAac,
	"ogg": TypeOgg, "oga": TypeOgg,
	"opus": TypeOpus,

	"flac": TypeFlac,
	"wav":  TypeWav,
	"aiff": TypeAiff, "aif": TypeAiff, "aifc": TypeAiff,
	"alac": TypeAlac,

	"pdf": TypePdf,
	"svg": TypeSvg, "svgz": TypeSvg,
	"eps": TypeEps,

	"txt": TypeText, "md": TypeText, "markdown": TypeText, "rst": TypeText, "adoc": TypeText,
	"rs": TypeText, "js": TypeText, "ts": TypeText, "jsx": TypeText, "tsx": TypeText,
	"py": TypeText, "go": TypeText, "c": TypeText, "cpp": TypeText, "cc": TypeText, "cxx": TypeText,
	"h": TypeText, "hpp": TypeText, "hh": TypeText, "hxx": TypeText,
	"java": TypeText, "kt": TypeText, "swift": TypeText, "rb": TypeText, "php": TypeText,
	"sh": TypeText, "bash": TypeText, "zsh": TypeText, "fish": TypeText,
	"vim": TypeText, "lua": TypeText, "pl": TypeText, "r": TypeText, "m": TypeText,
	"json": TypeJSON, "json5": TypeJSON, "jsonc": TypeJSON,
	"xml": TypeXML, "html": TypeXML, "xhtml": TypeXML, "htm": TypeXML, "xsl": TypeXML, "xslt": TypeXML,
	"yml": TypeYAML, "yaml": TypeYAML,
	"toml": TypeTOML,
	"csv":  TypeCSV, "tsv": TypeCSV, "psv": TypeCSV,

	"zip": TypeZip, "zipx": TypeZip,
	"tar":    TypeTar,
	"gz":     TypeGz,
	"gzip":   TypeGz,
	"7z":     TypeSevenZ,
	"rar":    TypeRar,

	"parquet": TypeParquet, "arrow": TypeParquet, "feather": TypeParquet, "orc": TypeParquet, "avro": TypeParquet,

	"hdf5": TypeMlData, "h5": TypeMlData, "nc": TypeMlData, "netcdf": TypeMlData,
	"npy": TypeMlData, "npz": TypeMlData, "tfrecords": TypeMlData, "petastorm": TypeMlData,

	"pb": TypeMlModel, "safetensors": TypeMlModel, "pkl": TypeMlModel, "joblib": TypeMlModel,

	"ckpt": TypeMlCheckpoint, "pt": TypeMlCheckpoint, "pth": TypeMlCheckpoint, "bin": TypeMlCheckpoint,

	"onnx": TypeMlInference, "gguf": TypeMlInference, "ggml": TypeMlInference, "tflite": TypeMlInference,
	"mlmodel": TypeMlInference, "coreml": TypeMlInference, "keras": TypeMlInference, "pte": TypeMlInference,
	"mleap": TypeMlInference, "pmml": TypeMlInference, "llamafile": TypeMlInference,

	"psd": TypeAdobePhotoshop, "psb": TypeAdobePhotoshop,
	"ai": TypeAdobeIllustrator, "ait": TypeAdobeIllustrator,
	"indd": TypeAdobeIndesign, "idml": TypeAdobeIndesign, "indt": TypeAdobeIndesign,
	"aep": TypeAdobeAfterEffects, "aet": TypeAdobeAfterEffects,
	"prproj": TypeAdobePremiere, "psq": TypeAdobePremiere,

	"drp": TypeDavinciResolve,
	"fcpbundle": TypeFinalCutPro, "fcpxml": TypeFinalCutPro, "fcpxmld": TypeFinalCutPro,
	"avb": TypeAvidMediaComposer, "avp": TypeAvidMediaComposer, "avs": TypeAvidMediaComposer,

	"blend": TypeBlender, "blend1": TypeBlender,
	"ma": TypeMaya, "mb": TypeMaya,
	"max": TypeThreeDsMax,
	"c4d": TypeCinema4D,
	"hip": TypeHoudini, "hipnc": TypeHoudini, "hiplc": TypeHoudini,

	"ptx": TypeProTools, "ptf": TypeProTools,
	"als":   TypeAbletonLive,
	"flp":   TypeFLStudio,
	"logic": TypeLogicPro, "logicx": TypeLogicPro,

	"dwg": TypeAutoCad, "dxf": TypeAutoCad,
	"skp": TypeSketchUp,
	"rvt": TypeRevit, "rfa": TypeRevit, "rte": TypeRevit,

	"unity": TypeUnityProject, "prefab": TypeUnityProject, "asset": TypeUnityProject, "unity3d": TypeUnityProject,
	"uasset": TypeUnrealProject, "umap": TypeUnrealProject, "upk": TypeUnrealProject,
	"tscn": TypeGodotProject, "tres": TypeGodotProject, "godot": TypeGodotProject,

	"docx": TypeWordDocument, "doc": TypeWordDocument, "docm": TypeWordDocument, "dot": TypeWordDocument, "dotx": TypeWordDocument,
	"xlsx": TypeExcelSpreadsheet, "xls": TypeExcelSpreadsheet, "xlsm": TypeExcelSpreadsheet, "xlsb": TypeExcelSpreadsheet, "xlt": TypeExcelSpreadsheet, "xltx": TypeExcelSpreadsheet,
	"pptx": TypePowerpointPresentation, "ppt": TypePowerpointPresentation, "pptm": TypePowerpointPresentation, "pot": TypePowerpointPresentation, "potx": TypePowerpointPresentation,
	"odt": TypeOpenDocument, "ods": TypeOpenDocument, "odp": TypeOpenDocument, "odg": TypeOpenDocument, "odf": TypeOpenDocument,

	"sqlite": TypeSqliteDatabase, "sqlite3": TypeSqliteDatabase, "db": TypeSqliteDatabase, "db3": TypeSqliteDatabase, "s3db": TypeSqliteDatabase,
}

// TypeFromExtension classifies a bare extension (no leading dot), case
// insensitively.
func TypeFromExtension(ext string) ObjectType {
	if t, ok := extensionTable[strings.ToLower(ext)]; ok {
		return t
	}
	return TypeUnknown
}

// TypeFromPath classifies a file by its path's extension.
func TypeFromPath(path string) ObjectType {
	ext := filepath.Ext(path)
	if ext == "" {
		return TypeUnknown
	}
	return TypeFromExtension(strings.TrimPrefix(ext, "."))
}

// TypeFromMagicBytes classifies content by sniffing well-known file
// signatures, used when no filename is available.
func TypeFromMagicBytes(data []byte) ObjectType {
	if len(data) < 4 {
		return TypeUnknown
	}
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return TypeJpeg
	case hasPrefix(data, 0x89, 0x50, 0x4E, 0x47):
		return TypePng
	case len(data) >= 4 && string(data[:4]) == "GIF8":
		return TypeGif
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return TypeWebp
	case hasPrefix(data, 0x49, 0x49, 0x2A, 0x00), hasPrefix(data, 0x4D, 0x4D, 0x00, 0x2A):
		return TypeTiff
	case hasPrefix(data, 0x42, 0x4D):
		return TypeBmp
	case len(data) >= 4 && string(data[:4]) == "%PDF":
		return TypePdf
	case len(data) >= 12 && string(data[4:8]) == "ftyp":
		return TypeMp4
	case hasPrefix(data, 0x50, 0x4B, 0x03, 0x04), hasPrefix(data, 0x50, 0x4B, 0x05, 0x06):
		return TypeZip
	case hasPrefix(data, 0x1F, 0x8B):
		return TypeGz
	default:
		return TypeUnknown
	}
}

func hasPrefix(data []byte, magic ...byte) bool {
	if len(data) < len(magic) {
		return false
	}
	for i, b := range magic {
		if data[i] != b {
			return false
		}
	}
	return true
}

// IsAlreadyCompressed reports whether content of this type is expected
// to already carry its own internal compression, making recompression
// wasteful or counterproductive.
func (t ObjectType) IsAlreadyCompressed() bool {
	switch t {
	case TypeJpeg, TypePng, TypeGif, TypeWebp, TypeAvif, TypeHeic, TypeGPUTexture,
		TypeMp4, TypeMov, TypeAvi, TypeMkv, TypeWebm, TypeFlv, TypeWmv, TypeMpg,
		TypeMp3, TypeAac, TypeOgg, TypeOpus,
		TypePdf, TypeZip, TypeGz, TypeSevenZ, TypeRar, TypeParquet,
		TypeAdobeIllustrator, TypeAdobeIndesign,
		TypeWordDocument, TypeExcelSpreadsheet, TypePowerpointPresentation, TypeOpenDocument:
		return true
	default:
		return false
	}
}

// Category returns the object type's high-level grouping.
func (t ObjectType) Category() Category {
	switch t {
	case TypeJpeg, TypePng, TypeGif, TypeWebp, TypeAvif, TypeHeic, TypeGPUTexture,
		TypeTiff, TypeBmp, TypeRaw, TypeExr, TypeHdr:
		return CategoryImage
	case TypeMp4, TypeMov, TypeAvi, TypeMkv, TypeWebm, TypeFlv, TypeWmv, TypeMpg:
		return CategoryVideo
	case TypeMp3, TypeAac, TypeOgg, TypeOpus, TypeFlac, TypeWav, TypeAiff, TypeAlac:
		return CategoryAudio
	case TypePdf, TypeSvg, TypeEps:
		return CategoryDocument
	case TypeText, TypeJSON, TypeXML, TypeYAML, TypeTOML, TypeCSV:
		return CategoryText
	case TypeZip, TypeTar, TypeGz, TypeSevenZ, TypeRar, TypeCompressedLog,
		TypeParquet, TypeMlData, TypeMlModel, TypeMlDeployment:
		return CategoryArchive
	case TypeMlCheckpoint, TypeMlInference:
		return CategoryMlSpecialized
	case TypeAdobePhotoshop, TypeAdobeIllustrator, TypeAdobeIndesign, TypeAdobeAfterEffects, TypeAdobePremiere,
		TypeDavinciResolve, TypeFinalCutPro, TypeAvidMediaComposer,
		TypeBlender, TypeMaya, TypeThreeDsMax, TypeCinema4D, TypeHoudini,
		TypeProTools, TypeAbletonLive, TypeFLStudio, TypeLogicPro,
		TypeAutoCad, TypeSketchUp, TypeRevit,
		TypeUnityProject, TypeUnrealProject, TypeGodotProject:
		return CategoryCreativeProject
	case TypeWordDocument, TypeExcelSpreadsheet, TypePowerpointPresentation, TypeOpenDocument:
		return CategoryOffice
	case TypeSqliteDatabase:
		return CategoryDatabase
	case TypeGitBlob, TypeGitTree, TypeGitCommit:
		return CategoryGitObject
	default:
		return CategoryUnknown
	}
}
