package writer

import (
	"fmt"

	"gonum.org/v1/hdf5"
)

const STRLEN = 64

func convertToHdf5String(s string) [STRLEN]byte {
	var byteArray [STRLEN]byte
	copy(byteArray[:], s)
	return byteArray
}

func boolToUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func createGroup(file *hdf5.File, groupName string) (*hdf5.Group, error) {
	g, err := file.CreateGroup(groupName)
	if err != nil {
		return nil, fmt.Errorf("error creating group %s: %w", groupName, err)
	}
	return g, nil
}

func datasetCreateProps(chunks []uint, level int) (*hdf5.PropList, error) {
	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, err
	}
	if err := plist.SetChunk(chunks); err != nil {
		plist.Close()
		return nil, err
	}
	if level > 0 {
		if err := plist.SetDeflate(level); err != nil {
			plist.Close()
			return nil, err
		}
	}
	return plist, nil
}

// create2dArray makes an extensible rows x width uint32 dataset.
func create2dArray(group *hdf5.Group, name string, width int, level int) (*hdf5.Dataset, error) {
	if width <= 0 {
		return nil, fmt.Errorf("error creating dataset %s: width %d", name, width)
	}
	dims := []uint{0, uint(width)}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDims := []uint{uint(unlimitedDims), uint(width)}
	chunkRows := uint(1024)
	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, err
	}
	defer fileSpace.Close()

	plist, err := datasetCreateProps([]uint{chunkRows, uint(width)}, level)
	if err != nil {
		return nil, fmt.Errorf("error creating property list for %s: %w", name, err)
	}
	defer plist.Close()

	dset, err := group.CreateDatasetWith(name, hdf5.T_NATIVE_UINT32, fileSpace, plist)
	if err != nil {
		return nil, fmt.Errorf("error creating dataset %s: %w", name, err)
	}
	return dset, nil
}

// createTable makes an extensible one dimensional dataset of compound rows
// shaped like datatype.
func createTable(group *hdf5.Group, name string, datatype interface{}, level int) (*hdf5.Dataset, error) {
	dims := []uint{0}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDims := []uint{uint(unlimitedDims)}
	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, err
	}
	defer fileSpace.Close()

	plist, err := datasetCreateProps([]uint{32768}, level)
	if err != nil {
		return nil, fmt.Errorf("error creating property list for %s: %w", name, err)
	}
	defer plist.Close()

	dtype, err := hdf5.NewDatatypeFromValue(datatype)
	if err != nil {
		return nil, fmt.Errorf("error creating datatype for %s: %w", name, err)
	}
	defer dtype.Close()

	dset, err := group.CreateDatasetWith(name, dtype, fileSpace, plist)
	if err != nil {
		return nil, fmt.Errorf("error creating dataset %s: %w", name, err)
	}
	return dset, nil
}

// writeArrayToTable appends data after the first rowsInFile rows.
func writeArrayToTable[T any](dataset *hdf5.Dataset, data *[]T, rowsInFile int) error {
	length := uint(len(*data))
	if length == 0 {
		return nil
	}
	dataspace, err := hdf5.CreateSimpleDataspace([]uint{length}, nil)
	if err != nil {
		return err
	}
	defer dataspace.Close()

	// extend
	start := uint(rowsInFile)
	if err := dataset.Resize([]uint{start + length}); err != nil {
		return err
	}
	filespace := dataset.Space()
	defer filespace.Close()

	if err := filespace.SelectHyperslab([]uint{start}, nil, []uint{length}, nil); err != nil {
		return err
	}
	return dataset.WriteSubset(data, dataspace, filespace)
}

// write2dArray appends len(*data)/width rows after the first rowsInFile.
func write2dArray(dataset *hdf5.Dataset, data *[]uint32, rowsInFile int, width int) error {
	if width == 0 || len(*data) == 0 {
		return nil
	}
	rows := uint(len(*data) / width)
	// extend
	if err := dataset.Resize([]uint{uint(rowsInFile) + rows, uint(width)}); err != nil {
		return err
	}
	filespace := dataset.Space()
	defer filespace.Close()

	start := []uint{uint(rowsInFile), 0}
	count := []uint{rows, uint(width)}
	if err := filespace.SelectHyperslab(start, nil, count, nil); err != nil {
		return err
	}

	dataspace, err := hdf5.CreateSimpleDataspace(count, nil)
	if err != nil {
		return err
	}
	defer dataspace.Close()

	return dataset.WriteSubset(data, dataspace, filespace)
}
