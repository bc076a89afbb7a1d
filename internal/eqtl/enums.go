package eqtl

// typeOfGene maps GENCODE gene biotypes to TypeOfGeneEnum values.
var typeOfGene = map[string]string{
	"IG_C_gene":                          "dcs:TypeOfGeneIGCGene",
	"IG_C_pseudogene":                    "dcs:TypeOfGeneIGCPseudogene",
	"IG_J_gene":                          "dcs:TypeOfGeneIGJGene",
	"IG_V_gene":                          "dcs:TypeOfGeneIGVGene",
	"TEC":                                "dcs:TypeOfGeneToBeExperimentallyConfirmed",
	"TR_C_gene":                          "dcs:TypeOfGeneTRCGene",
	"TR_V_gene":                          "dcs:TypeOfGeneTRVGene",
	"TR_V_pseudogene":                    "dcs:TypeOfGeneTRVPseudogene",
	"lncRNA":                             "dcs:TypeOfGenelncRNA",
	"miRNA":                              "dcs:TypeOfGenemiRNA",
	"misc_RNA":                           "dcs:TypeOfGenemiscRNA",
	"polymorphic_pseudogene":             "dcs:TypeOfGenePolymorphicPseudogene",
	"processed_pseudogene":               "dcs:TypeOfGeneProcessedPseudogene",
	"protein_coding":                     "dcs:TypeOfGeneProteinCoding",
	"pseudogene":                         "dcs:TypeOfGenePseudo",
	"rRNA_pseudogene":                    "dcs:TypeOfGenerRNAPseudogene",
	"scRNA":                              "dcs:TypeOfGenescRNA",
	"scaRNA":                             "dcs:TypeOfGenescaRNA",
	"snRNA":                              "dcs:TypeOfGenesnRNA",
	"snoRNA":                             "dcs:TypeOfGenesnoRNA",
	"transcribed_processed_pseudogene":   "dcs:TypeOfGeneTranscribedProcessedPseudogene",
	"transcribed_unitary_pseudogene":     "dcs:TypeOfGeneTranscribedUnitaryPseudogene",
	"transcribed_unprocessed_pseudogene": "dcs:TypeOfGeneTranscribedUnprocessedPseudogene",
	"translated_processed_pseudogene":    "dcs:TypeOfGeneTranslatedProcessedPseudogene",
	"translated_unprocessed_pseudogene":  "dcs:TypeOfGeneTranslatedUnprocessedPseudogene",
	"unitary_pseudogene":                 "dcs:TypeOfGeneUnitaryPseudogene",
	"unprocessed_pseudogene":             "dcs:TypeOfGeneUnprocessedPseudogene",
}

// TypeOfGeneUnknown is used for biotypes without an enum value.
const TypeOfGeneUnknown = "dcs:TypeOfGeneUnknown"

var strandOrientation = map[string]string{
	"+": "dcs:StrandOrientationPositive",
	"-": "dcs:StrandOrientationNegative",
}

// TypeOfGene converts a biotype to its TypeOfGeneEnum value.
func TypeOfGene(biotype string) string {
	if v, ok := typeOfGene[biotype]; ok {
		return v
	}
	return TypeOfGeneUnknown
}

// StrandOrientation converts "+"/"-" to a StrandOrientationEnum value.
// Other values are returned unchanged.
func StrandOrientation(strand string) string {
	if v, ok := strandOrientation[strand]; ok {
		return v
	}
	return strand
}
