package nwis

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/riverwatch/usgs-water-etl/internal/domain"
)

// missingSentinel is the NWIS marker for an unavailable observation.
const missingSentinel = -999999

// IV service response types. Only the fields the flattener needs; the
// payload carries much more.

type ivResponse struct {
	Value struct {
		TimeSeries []ivTimeSeries `json:"timeSeries"`
	} `json:"value"`
}

type ivTimeSeries struct {
	SourceInfo struct {
		SiteCode []ivCode `json:"siteCode"`
	} `json:"sourceInfo"`
	Variable struct {
		VariableCode []ivCode `json:"variableCode"`
		VariableName string   `json:"variableName"`
		Unit         struct {
			UnitCode string `json:"unitCode"`
		} `json:"unit"`
	} `json:"variable"`
	Values []struct {
		Value []ivPoint `json:"value"`
	} `json:"values"`
}

type ivCode struct {
	Value string `json:"value"`
}

type ivPoint struct {
	Value      string   `json:"value"`
	Qualifiers []string `json:"qualifiers"`
	DateTime   string   `json:"dateTime"`
}

// flattenIV converts a nested IV response into flat readings stamped with the
// partition's state code. Points with missing-value sentinels, empty values,
// or unparseable timestamps are dropped. Within one timeSeries block the
// service returns points in timestamp order, which is preserved.
func flattenIV(body []byte, state string) ([]domain.Reading, error) {
	var resp ivResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal IV payload: %w", err)
	}

	var readings []domain.Reading
	for _, ts := range resp.Value.TimeSeries {
		if len(ts.SourceInfo.SiteCode) == 0 || len(ts.Variable.VariableCode) == 0 {
			continue
		}
		siteNo := ts.SourceInfo.SiteCode[0].Value
		paramCode := ts.Variable.VariableCode[0].Value

		for _, block := range ts.Values {
			for _, pt := range block.Value {
				r, ok := flattenPoint(pt, siteNo, state, paramCode, ts)
				if !ok {
					continue
				}
				readings = append(readings, r)
			}
		}
	}
	return readings, nil
}

func flattenPoint(pt ivPoint, siteNo, state, paramCode string, ts ivTimeSeries) (domain.Reading, bool) {
	if pt.DateTime == "" || pt.Value == "" {
		return domain.Reading{}, false
	}
	when, err := time.Parse(time.RFC3339, pt.DateTime)
	if err != nil {
		return domain.Reading{}, false
	}
	value, err := strconv.ParseFloat(pt.Value, 64)
	if err != nil || value == missingSentinel {
		return domain.Reading{}, false
	}

	return domain.Reading{
		SiteNumber:    siteNo,
		State:         state,
		Timestamp:     when.UTC(),
		ParameterCode: paramCode,
		ParameterName: ts.Variable.VariableName,
		Unit:          ts.Variable.Unit.UnitCode,
		Value:         value,
		Qualifiers:    strings.Join(pt.Qualifiers, ","),
	}, true
}
