package enrich

// analyticalRoots are the document child keys owned by the analysis phases
// (summary synthesis and significance analysis). Everything else under
// "document" is an observable fact.
var analyticalRoots = map[string]bool{
	"summary":  true,
	"keywords": true,
	"subjects": true,
	"analysis": true,
}

// Merge folds src into dst following the field-ownership rule: observable
// facts keep whichever agent produced them first, while fields under an
// analytical root are owned by the analysis phases and overwrite any
// earlier placeholder when fromAnalysis is true.
func Merge(dst, src map[string]any, fromAnalysis bool) {
	mergeLevel(dst, src, fromAnalysis, false, 0)
}

func mergeLevel(dst, src map[string]any, fromAnalysis, owned bool, depth int) {
	for key, value := range src {
		childOwned := owned || (depth == 1 && fromAnalysis && analyticalRoots[key])

		existing, exists := dst[key]
		if !exists {
			dst[key] = value
			continue
		}

		dstChild, dstIsMap := existing.(map[string]any)
		srcChild, srcIsMap := value.(map[string]any)
		if dstIsMap && srcIsMap {
			mergeLevel(dstChild, srcChild, fromAnalysis, childOwned, depth+1)
			continue
		}

		if childOwned {
			dst[key] = value
		}
	}
}
