package core

// ComplianceMetadata is derived for every entry at creation time. It is
// carried on the chain so downstream reporting collaborators do not need
// their own classification tables; the engine itself never enforces
// retention.
type ComplianceMetadata struct {
	Frameworks     []string       `json:"frameworks"`
	RetentionYears int            `json:"retention_years"`
	Jurisdiction   string         `json:"jurisdiction"`
	Classification Classification `json:"classification"`
}

// complianceRule maps a classification to its derived metadata.
type complianceRule struct {
	frameworks     []string
	retentionYears int
	jurisdiction   string
}

// The rule table is pure and deterministic: the same inputs always derive
// the same metadata. Retention floors come from the strictest framework in
// the row.
var complianceRules = map[Classification]complianceRule{
	ClassUnclassified: {
		frameworks:     []string{"SOX", "ISO27001"},
		retentionYears: 7,
		jurisdiction:   "US",
	},
	ClassConfidential: {
		frameworks:     []string{"SOX", "ISO27001", "GDPR"},
		retentionYears: 7,
		jurisdiction:   "US",
	},
	ClassSecret: {
		frameworks:     []string{"SOX", "ISO27001", "GDPR", "FISMA"},
		retentionYears: 10,
		jurisdiction:   "US",
	},
	ClassTopSecret: {
		frameworks:     []string{"SOX", "ISO27001", "GDPR", "FISMA", "CMMC"},
		retentionYears: 25,
		jurisdiction:   "US",
	},
}

// protectionRetentionFloor raises retention for higher protection tiers.
var protectionRetentionFloor = map[ProtectionLevel]int{
	ProtectionStandard: 0,
	ProtectionEnhanced: 10,
	ProtectionMaximum:  25,
}

// DeriveCompliance derives compliance metadata from optional executive
// metadata. A nil meta yields the unclassified defaults.
func DeriveCompliance(meta *ExecutiveMetadata) ComplianceMetadata {
	classification := ClassUnclassified
	if meta != nil && meta.Classification != "" {
		classification = meta.Classification
	}

	rule, ok := complianceRules[classification]
	if !ok {
		rule = complianceRules[ClassUnclassified]
		classification = ClassUnclassified
	}

	retention := rule.retentionYears
	if meta != nil {
		if floor := protectionRetentionFloor[meta.ProtectionLevel]; floor > retention {
			retention = floor
		}
		if meta.RetentionYears > retention {
			retention = meta.RetentionYears
		}
	}

	frameworks := make([]string, len(rule.frameworks))
	copy(frameworks, rule.frameworks)

	return ComplianceMetadata{
		Frameworks:     frameworks,
		RetentionYears: retention,
		Jurisdiction:   rule.jurisdiction,
		Classification: classification,
	}
}
