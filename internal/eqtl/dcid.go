package eqtl

import "strings"

// illegalDcidChars may not appear in a dcid.
var illegalDcidChars = []string{"'", "*", ">", "<", "@", "]", "[", "|", ":", ";", " "}

// IllegalChars returns the illegal characters present in dcid, in the order
// of the blacklist.
func IllegalChars(dcid string) []string {
	var found []string
	for _, c := range illegalDcidChars {
		if strings.Contains(dcid, c) {
			found = append(found, c)
		}
	}
	return found
}

// TissueName returns the display form of a GTEx tissue ("Whole_Blood" ->
// "Whole Blood").
func TissueName(tissue string) string {
	return strings.ReplaceAll(tissue, "_", " ")
}

// EnsemblID strips the version suffix from a GTEx gene id.
func EnsemblID(geneID string) string {
	id, _, _ := strings.Cut(geneID, ".")
	return id
}

// geneKey is the symbol as used inside dcids; gene clusters such as "HOXA@"
// become "HOXA_Cluster".
func geneKey(symbol string) string {
	return strings.ReplaceAll(symbol, "@", "_Cluster")
}

// missingRsID reports whether rsID carries no identifier.
func missingRsID(rsID string) bool {
	return rsID == "" || rsID == "."
}

// GeneDcid returns the dcid of a gene node.
func GeneDcid(symbol string) string {
	if symbol == "" {
		return ""
	}
	return "bio/" + geneKey(symbol)
}

// VariantDcid returns the dcid of a genetic variant node.
func VariantDcid(rsID string) string {
	if missingRsID(rsID) {
		return ""
	}
	return "bio/" + rsID
}

// AssociationDcid returns the dcid of a gene/variant association in a tissue.
func AssociationDcid(symbol, rsID, tissue string) string {
	if symbol == "" || missingRsID(rsID) {
		return ""
	}
	return "bio/" + geneKey(symbol) + "_" + rsID + "_" + tissue
}

// AssociationName returns the display name of an association node.
func AssociationName(symbol, rsID, tissue string) string {
	if symbol == "" || missingRsID(rsID) {
		return ""
	}
	return symbol + " " + rsID + " Association In " + TissueName(tissue)
}

// GeneCoordinatesDcid returns the dcid of a gene's genomic coordinates.
func GeneCoordinatesDcid(assembly, symbol string) string {
	if symbol == "" {
		return ""
	}
	return "bio/" + assembly + "_" + geneKey(symbol) + "_coordinates"
}

// GeneCoordinatesName returns the display name of a gene's coordinates.
func GeneCoordinatesName(assembly, symbol string) string {
	if symbol == "" {
		return ""
	}
	return assembly + " " + symbol + " Coordinates"
}

// VariantPositionDcid returns the dcid of a variant's genomic position.
func VariantPositionDcid(assembly, chrom, pos string) string {
	if chrom == "" || pos == "" {
		return ""
	}
	return "bio/" + assembly + "_" + chrom + "_" + pos
}

// VariantPositionName returns the display name of a variant's position.
func VariantPositionName(assembly, chrom, pos string) string {
	if chrom == "" || pos == "" {
		return ""
	}
	return assembly + " " + chrom + " " + pos
}
