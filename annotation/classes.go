package annotation

// classNames maps canonical label values to the class names used across
// CellMap annotation crops.
var classNames = map[int]InstanceName{
	1:  {Short: "ECS", Long: "Extracellular Space"},
	2:  {Short: "Plasma membrane", Long: "Plasma membrane"},
	3:  {Short: "Mito membrane", Long: "Mitochondrial membrane"},
	4:  {Short: "Mito lumen", Long: "Mitochondrial lumen"},
	5:  {Short: "Mito DNA", Long: "Mitochondrial DNA"},
	6:  {Short: "Golgi Membrane", Long: "Golgi apparatus membrane"},
	7:  {Short: "Golgi lumen", Long: "Golgi apparatus lumen"},
	8:  {Short: "Vesicle membrane", Long: "Vesicle membrane"},
	9:  {Short: "Vesicle lumen", Long: "VesicleLumen"},
	10: {Short: "MVB membrane", Long: "Multivesicular body membrane"},
	11: {Short: "MVB lumen", Long: "Multivesicular body lumen"},
	12: {Short: "Lysosome membrane", Long: "Lysosome membrane"},
	13: {Short: "Lysosome lumen", Long: "Lysosome membrane"},
	14: {Short: "LD membrane", Long: "Lipid droplet membrane"},
	15: {Short: "LD lumen", Long: "Lipid droplet lumen"},
	16: {Short: "ER membrane", Long: "Endoplasmic reticulum membrane"},
	17: {Short: "ER lumen", Long: "Endoplasmic reticulum membrane"},
	18: {Short: "ERES membrane", Long: "Endoplasmic reticulum exit site membrane"},
	19: {Short: "ERES lumen", Long: "Endoplasmic reticulum exit site lumen"},
	20: {Short: "NE membrane", Long: "Nuclear envelope membrane"},
	21: {Short: "NE lumen", Long: "Nuclear envelope lumen"},
	22: {Short: "Nuclear pore out", Long: "Nuclear pore out"},
	23: {Short: "Nuclear pore in", Long: "Nuclear pore in"},
	24: {Short: "HChrom", Long: "Heterochromatin"},
	25: {Short: "NHChrom", Long: "Nuclear heterochromatin"},
	26: {Short: "EChrom", Long: "Euchromatin"},
	27: {Short: "NEChrom", Long: "Nuclear euchromatin"},
	28: {Short: "Nucleoplasm", Long: "Nucleoplasm"},
	29: {Short: "Nucleolus", Long: "Nucleolus"},
	30: {Short: "Microtubules out", Long: "Microtubules out"},
	31: {Short: "Centrosome", Long: "Centrosome"},
	32: {Short: "Distal appendages", Long: "Distal appendages"},
	33: {Short: "Subdistal appendages", Long: "Subdistal appendages"},
	34: {Short: "Ribosomes", Long: "Ribsoomes"},
	35: {Short: "Cytosol", Long: "Cytosol"},
	36: {Short: "Microtubules in", Long: "Microtubules in"},
	37: {Short: "Nucleus combined", Long: "Nucleus combined"},
	38: {Short: "Vimentin", Long: "Vimentin"},
	39: {Short: "Glycogen", Long: "Glycogen"},
	40: {Short: "Cardiac neurons", Long: "Cardiac neurons"},
	41: {Short: "Endothelial cells", Long: "Endothelial cells"},
	42: {Short: "Cardiomyocytes", Long: "Cardiomyocytes"},
	43: {Short: "Epicardial cells", Long: "Epicardial cells"},
	44: {Short: "Parietal pericardial cells", Long: "Parietal pericardial cells"},
	45: {Short: "Red blood cells", Long: "Red blood cells"},
	46: {Short: "White blood cells", Long: "White blood cells"},
	47: {Short: "Peroxisome membrane", Long: "Peroxisome membrane"},
	48: {Short: "Peroxisome lumen", Long: "Peroxisome lumen"},
}

// ClassName returns the canonical class name for a label value.
func ClassName(value int) (InstanceName, bool) {
	name, found := classNames[value]
	return name, found
}
