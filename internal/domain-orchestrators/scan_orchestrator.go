package orchestrators

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/ochairo/roaster/internal/domain/entities"
	"github.com/ochairo/roaster/internal/domain/interfaces"
	"github.com/ochairo/roaster/internal/domain/interfaces/gateways"
)

// ScanOrchestrator fans a working tree out to every scanner and merges the results
// Following Clean Architecture: orchestrators coordinate gateways for complex use cases
type ScanOrchestrator struct {
	scanners []gateways.ScannerGateway
	parallel bool
	logger   interfaces.Logger
}

// NewScanOrchestrator creates a scan orchestrator.
// Scanner order is the merge order of the findings.
func NewScanOrchestrator(scanners []gateways.ScannerGateway, parallel bool, logger interfaces.Logger) *ScanOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &ScanOrchestrator{
		scanners: scanners,
		parallel: parallel,
		logger:   logger,
	}
}

// ScanOutcome is the merged result of one orchestrated scan
type ScanOutcome struct {
	Findings []entities.Finding
	Reports  []entities.ScannerReport
	Duration time.Duration
}

type scannerSlot struct {
	findings []entities.Finding
	report   entities.ScannerReport
}

// Scan runs every scanner against root and never fails for scanner-level reasons
func (o *ScanOrchestrator) Scan(ctx context.Context, root string) []entities.Finding {
	return o.ScanWithReports(ctx, root).Findings
}

// ScanWithReports is Scan plus per-scanner timing and error details.
// Tools always receive an absolute root.
func (o *ScanOrchestrator) ScanWithReports(ctx context.Context, root string) *ScanOutcome {
	startTime := time.Now()
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	slots := make([]scannerSlot, len(o.scanners))

	if o.parallel {
		var wg sync.WaitGroup
		for i, scanner := range o.scanners {
			wg.Add(1)
			go func(i int, scanner gateways.ScannerGateway) {
				defer wg.Done()
				slots[i] = o.runScanner(ctx, scanner, root)
			}(i, scanner)
		}
		wg.Wait()
	} else {
		for i, scanner := range o.scanners {
			slots[i] = o.runScanner(ctx, scanner, root)
		}
	}

	outcome := &ScanOutcome{
		Findings: make([]entities.Finding, 0),
		Reports:  make([]entities.ScannerReport, 0, len(slots)),
	}
	for _, slot := range slots {
		outcome.Findings = append(outcome.Findings, slot.findings...)
		outcome.Reports = append(outcome.Reports, slot.report)
	}
	outcome.Duration = time.Since(startTime)

	return outcome
}

// runScanner isolates one adapter: errors and panics become a report entry
func (o *ScanOrchestrator) runScanner(ctx context.Context, scanner gateways.ScannerGateway, root string) (slot scannerSlot) {
	name := scanner.Name()
	startTime := time.Now()
	slot.report.Scanner = name

	defer func() {
		slot.report.Duration = time.Since(startTime)
		if r := recover(); r != nil {
			slot.findings = nil
			slot.report.Findings = 0
			slot.report.Error = fmt.Sprintf("panic: %v", r)
			o.logger.Warn("scanner panicked",
				interfaces.F("scanner", name),
				interfaces.F("panic", fmt.Sprint(r)))
		}
	}()

	findings, err := scanner.Scan(ctx, root)
	if err != nil {
		slot.report.Error = err.Error()
		o.logger.Warn("scanner failed",
			interfaces.F("scanner", name),
			interfaces.Err(err))
		return slot
	}

	slot.findings = findings
	slot.report.Findings = len(findings)
	o.logger.Debug("scanner finished",
		interfaces.F("scanner", name),
		interfaces.F("findings", len(findings)))

	return slot
}
