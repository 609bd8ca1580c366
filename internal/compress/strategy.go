package compress

// largeTextThreshold is the size above which Brotli's ratio advantage
// stops being worth its much slower compression time; above it, text
// falls back to Zstd Default (roughly 10x faster, ~20% worse ratio).
const largeTextThreshold = 500 * 1024 * 1024

// StrategyForType selects a compression strategy for an object type,
// independent of the content's size.
func StrategyForType(t ObjectType) Strategy {
	switch t {
	case TypeJpeg, TypePng, TypeGif, TypeWebp, TypeAvif, TypeHeic, TypeGPUTexture:
		return storeStrategy

	case TypeTiff, TypeBmp, TypeRaw, TypeExr, TypeHdr:
		return Strategy{Algorithm: AlgorithmZstd, Level: LevelBest}

	case TypeMp4, TypeMov, TypeAvi, TypeMkv, TypeWebm, TypeFlv, TypeWmv, TypeMpg:
		return storeStrategy

	case TypeMp3, TypeAac, TypeOgg, TypeOpus:
		return storeStrategy

	case TypeFlac, TypeWav, TypeAiff, TypeAlac:
		return Strategy{Algorithm: AlgorithmZstd, Level: LevelBest}

	case TypePdf, TypeSvg, TypeEps:
		return Strategy{Algorithm: AlgorithmZstd, Level: LevelDefault}

	case TypeText, TypeJSON, TypeXML, TypeYAML, TypeTOML, TypeCSV:
		return Strategy{Algorithm: AlgorithmBrotli, Level: LevelDefault}

	case TypeZip, TypeGz, TypeSevenZ, TypeRar, TypeParquet, TypeCompressedLog:
		return storeStrategy

	case TypeTar:
		return Strategy{Algorithm: AlgorithmZstd, Level: LevelDefault}

	case TypeMlData, TypeMlModel, TypeMlCheckpoint:
		return Strategy{Algorithm: AlgorithmZstd, Level: LevelFast}

	case TypeMlInference, TypeMlDeployment:
		return Strategy{Algorithm: AlgorithmZstd, Level: LevelDefault}

	case TypeAdobeIllustrator, TypeAdobeIndesign:
		return storeStrategy

	case TypeAdobePhotoshop, TypeAdobeAfterEffects, TypeAdobePremiere,
		TypeDavinciResolve, TypeFinalCutPro, TypeAvidMediaComposer,
		TypeBlender, TypeMaya, TypeThreeDsMax, TypeCinema4D, TypeHoudini,
		TypeProTools, TypeAbletonLive, TypeFLStudio, TypeLogicPro,
		TypeAutoCad, TypeSketchUp, TypeRevit,
		TypeUnityProject, TypeUnrealProject, TypeGodotProject:
		return Strategy{Algorithm: AlgorithmZstd, Level: LevelDefault}

	case TypeWordDocument, TypeExcelSpreadsheet, TypePowerpointPresentation, TypeOpenDocument:
		return storeStrategy

	case TypeSqliteDatabase:
		return Strategy{Algorithm: AlgorithmZstd, Level: LevelDefault}

	case TypeGitBlob, TypeGitTree, TypeGitCommit:
		return Strategy{Algorithm: AlgorithmZlib, Level: LevelDefault}

	default: // TypeUnknown and anything unmapped
		return Strategy{Algorithm: AlgorithmZstd, Level: LevelDefault}
	}
}

// StrategyForTypeWithSize is StrategyForType, but swaps a Brotli choice
// for Zstd Default once the content crosses largeTextThreshold.
func StrategyForTypeWithSize(t ObjectType, size int) Strategy {
	base := StrategyForType(t)
	if size >= largeTextThreshold && base.Algorithm == AlgorithmBrotli {
		return Strategy{Algorithm: AlgorithmZstd, Level: LevelDefault}
	}
	return base
}
