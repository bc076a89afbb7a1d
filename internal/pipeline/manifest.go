package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/inodb/gtex-eqtl/internal/fileio"
)

// Manifest lists the lookups and tissues of a batch run.
//
//	gene_lookup: gencode.v39.genes.gtf
//	hgnc_lookup: hgnc_complete_set.txt
//	rsid_lookup: GTEx_Analysis_2021-02-11_v10_WholeGenomeSeq_953Indiv.lookup_table.txt.gz
//	output_dir: out
//	tissues:
//	  - name: Whole_Blood
//	    egenes: Whole_Blood.v10.egenes.txt.gz
//	    sig_pairs: Whole_Blood.v10.signif_pairs.parquet
type Manifest struct {
	GeneLookup string           `yaml:"gene_lookup"`
	HGNCLookup string           `yaml:"hgnc_lookup"`
	RsIDLookup string           `yaml:"rsid_lookup"`
	OutputDir  string           `yaml:"output_dir"`
	Tissues    []ManifestTissue `yaml:"tissues"`
}

// ManifestTissue names the inputs of one tissue. Outputs default to
// <output_dir>/<name>.egenes.csv and <output_dir>/<name>.signif_pairs.csv.
type ManifestTissue struct {
	Name        string `yaml:"name"`
	Egenes      string `yaml:"egenes"`
	SigPairs    string `yaml:"sig_pairs"`
	OutEgenes   string `yaml:"out_egenes,omitempty"`
	OutSigPairs string `yaml:"out_sig_pairs,omitempty"`
}

// ReadManifest reads and validates a manifest file. Relative local paths are
// resolved against the manifest's directory.
func ReadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var m Manifest
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}

	m.resolve(filepath.Dir(path))
	return &m, nil
}

func (m *Manifest) validate() error {
	var errs []error
	if m.GeneLookup == "" {
		errs = append(errs, errors.New("gene_lookup is required"))
	}
	if m.HGNCLookup == "" {
		errs = append(errs, errors.New("hgnc_lookup is required"))
	}
	if m.RsIDLookup == "" {
		errs = append(errs, errors.New("rsid_lookup is required"))
	}
	if len(m.Tissues) == 0 {
		errs = append(errs, errors.New("no tissues listed"))
	}

	seen := make(map[string]bool, len(m.Tissues))
	for i, t := range m.Tissues {
		switch {
		case t.Name == "":
			errs = append(errs, fmt.Errorf("tissue %d: name is required", i+1))
		case seen[t.Name]:
			errs = append(errs, fmt.Errorf("tissue %q listed twice", t.Name))
		}
		seen[t.Name] = true
		if t.Egenes == "" || t.SigPairs == "" {
			errs = append(errs, fmt.Errorf("tissue %q: egenes and sig_pairs are required", t.Name))
		}
	}
	return errors.Join(errs...)
}

func (m *Manifest) resolve(base string) {
	abs := func(p string) string {
		if p == "" || fileio.IsRemote(p) || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	m.GeneLookup = abs(m.GeneLookup)
	m.HGNCLookup = abs(m.HGNCLookup)
	m.RsIDLookup = abs(m.RsIDLookup)
	m.OutputDir = abs(m.OutputDir)
	if m.OutputDir == "" {
		m.OutputDir = base
	}
	for i := range m.Tissues {
		t := &m.Tissues[i]
		t.Egenes = abs(t.Egenes)
		t.SigPairs = abs(t.SigPairs)
		t.OutEgenes = abs(t.OutEgenes)
		t.OutSigPairs = abs(t.OutSigPairs)
	}
}

// Paths returns the lookup inputs.
func (m *Manifest) Paths() LookupPaths {
	return LookupPaths{Genes: m.GeneLookup, HGNC: m.HGNCLookup, RsIDs: m.RsIDLookup}
}

// Jobs returns one job per tissue, in manifest order.
func (m *Manifest) Jobs() []Job {
	jobs := make([]Job, len(m.Tissues))
	for i, t := range m.Tissues {
		job := Job{
			Tissue:      t.Name,
			Egenes:      t.Egenes,
			SigPairs:    t.SigPairs,
			OutEgenes:   t.OutEgenes,
			OutSigPairs: t.OutSigPairs,
		}
		if job.OutEgenes == "" {
			job.OutEgenes = filepath.Join(m.OutputDir, t.Name+".egenes.csv")
		}
		if job.OutSigPairs == "" {
			job.OutSigPairs = filepath.Join(m.OutputDir, t.Name+".signif_pairs.csv")
		}
		jobs[i] = job
	}
	return jobs
}

// InputPaths returns every input path of the manifest, lookups first.
func (m *Manifest) InputPaths() []string {
	paths := []string{m.GeneLookup, m.HGNCLookup, m.RsIDLookup}
	for _, t := range m.Tissues {
		paths = append(paths, t.Egenes, t.SigPairs)
	}
	return paths
}
