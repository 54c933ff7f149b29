package ecmodel

// DefaultSingleTransfer is the reference single electron transfer
// experiment: a reversed large-amplitude ac voltammetry scan.
func DefaultSingleTransfer() Config {
	return Config{
		Variant:  Single(),
		Reversed: true,
		Params: Parameters{
			"Estart":   0.5,
			"Ereverse": -0.1,
			"omega":    9.0152,
			"phase":    0,
			"dE":       0.08,
			"v":        -0.08941,
			"T":        297.0,
			"a":        0.07,
			"c_inf":    1 * 1e-3 * 1e-3,
			"D":        7.2e-6,
			"Ru":       8.0,
			"Cdl":      20.0 * 1e-6,
			"E0":       0.214,
			"k0":       0.0101,
			"alpha":    0.53,
		},
	}
}

// DefaultPOM is the reference polyoxometalate experiment: three adsorbed
// two-electron processes.
func DefaultPOM() Config {
	return Config{
		Variant: POM(),
		Params: Parameters{
			"Estart":   0.6,
			"Ereverse": -0.1,
			"omega":    6.05168,
			"phase":    0,
			"dE":       20e-3,
			"v":        -0.1043081,
			"T":        298.2,
			"a":        0.0707,
			"c_inf":    0.1 * 1e-3 * 1e-3,
			"Ru":       50.0,
			"Cdl":      0.000008,
			"Gamma":    0.7 * 53.0e-12,
			"E01":      0.368,
			"E02":      0.338,
			"E11":      0.227,
			"E12":      0.227,
			"E21":      0.011,
			"E22":      -0.016,
			"k01":      7300,
			"k02":      7300,
			"k11":      1e4,
			"k12":      1e4,
			"k21":      2500,
			"k22":      2500,
			"alpha1":   0.5,
			"alpha2":   0.5,
			"alpha11":  0.5,
			"alpha12":  0.5,
			"alpha21":  0.5,
			"alpha22":  0.5,
		},
	}
}
