// Package trackers implements Trackers, which track and save data
// generated by an experiment
package trackers

import (
	"encoding/gob"
	"fmt"
	"os"

	ts "github.com/samuelfneumann/mpcrl/timestep"
)

// Tracker keeps track of experiment data and saves the data after the
// experiment has finished
type Tracker interface {
	Track(t ts.TimeStep)
	Save() error
}

// save gob-encodes data into filename
func save(filename string, data interface{}) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("save: could not open save file: %v", err)
	}
	defer file.Close()

	en := gob.NewEncoder(file)
	if err = en.Encode(data); err != nil {
		return fmt.Errorf("save: could not encode data: %v", err)
	}
	return nil
}

// LoadData loads and returns the data saved by a Return Tracker
func LoadData(filename string) ([]float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("loadData: could not open data file: %v", err)
	}
	defer file.Close()

	dec := gob.NewDecoder(file)
	var data []float64
	if err = dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("loadData: could not decode data: %v", err)
	}
	return data, nil
}
